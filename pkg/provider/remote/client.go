package remote

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/oneconcern/contentstore/pkg/errors"
	"github.com/oneconcern/contentstore/pkg/identifier"
	"github.com/oneconcern/contentstore/pkg/provider"
	"github.com/oneconcern/contentstore/pkg/provider/status"
	"github.com/opentracing-contrib/go-stdlib/nethttp"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

var _ provider.Provider = &Client{}

// Client is a provider calling a remote content server.
//
// Transient failures, including truncated transfers, are retried with an exponential backoff.
type Client struct {
	endpoint string
	hc       *http.Client
	o        options
}

// NewClient builds a provider for the server at some http(s) endpoint
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, status.ErrConfiguration.Wrap(err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, status.ErrConfiguration.Wrapf("remote: unsupported endpoint %q", endpoint)
	}

	c := &Client{
		endpoint: strings.TrimSuffix(u.String(), "/"),
		o:        applyOptions(opts),
	}
	hc := c.o.httpClient
	if hc == nil {
		hc = &http.Client{}
	}
	traced := *hc
	traced.Transport = &nethttp.Transport{RoundTripper: hc.Transport}
	c.hc = &traced
	return c, nil
}

func (c *Client) String() string { return "remote(" + c.endpoint + ")" }

// Read content
func (c *Client) Read(ctx context.Context, id identifier.Identifier) ([]byte, error) {
	if data, ok := provider.ReadInline(id); ok {
		return data, nil
	}
	if id.IsZero() {
		return nil, status.ErrInvalid.Wrapf("zero identifier")
	}

	var data []byte
	err := c.retry(ctx, func() error {
		resp, err := c.do(ctx, http.MethodGet, ContentPath+"/"+id.String(), nil)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return responseError(resp)
		}
		var buf bytes.Buffer
		buf.Grow(int(id.Size()))
		if _, err := buf.ReadFrom(resp.Body); err != nil {
			return status.ErrIO.Wrapf("remote: reading %v: %v", id, err)
		}
		body := buf.Bytes()
		if resp.ContentLength >= 0 && int64(len(body)) != resp.ContentLength {
			return status.ErrIO.Wrapf("remote: truncated content for %v: %d/%d bytes", id, len(body), resp.ContentLength)
		}
		if !id.Matches(body) {
			return backoff.Permanent(status.ErrCorruptedContent.Wrapf("%v: content does not match %v", c, id))
		}
		data = body
		return nil
	})
	return data, err
}

// Write content
func (c *Client) Write(ctx context.Context, data []byte) (identifier.Identifier, error) {
	var id identifier.Identifier
	err := c.retry(ctx, func() error {
		resp, err := c.do(ctx, http.MethodPut, ContentPath, bytes.NewReader(data))
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
			return responseError(resp)
		}
		var reply PutResponse
		if err := msgpack.NewDecoder(resp.Body).Decode(&reply); err != nil {
			return status.ErrIO.Wrapf("remote: decoding put response: %v", err)
		}
		written, err := identifier.Parse(reply.ID)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !written.Matches(data) {
			return backoff.Permanent(status.ErrUnexpectedContent.Wrapf("%v: server replied %v", c, written))
		}
		c.o.l.Debug("remote write", zap.Stringer("id", written), zap.Bool("existed", reply.Existed))
		id = written
		return nil
	})
	return id, err
}

// Exists checks for content
func (c *Client) Exists(ctx context.Context, id identifier.Identifier) (bool, error) {
	if id.IsData() {
		return true, nil
	}
	if id.IsZero() {
		return false, status.ErrInvalid.Wrapf("zero identifier")
	}

	var found bool
	err := c.retry(ctx, func() error {
		resp, err := c.do(ctx, http.MethodHead, ContentPath+"/"+id.String(), nil)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK:
			found = true
			return nil
		case http.StatusNotFound:
			found = false
			return nil
		default:
			return responseError(resp)
		}
	})
	return found, err
}

// Unwrite removes content from the server
func (c *Client) Unwrite(ctx context.Context, id identifier.Identifier) error {
	if !c.o.allowUnwrite {
		return status.ErrUnwriteNotSupported.Wrapf("%v", c)
	}
	if id.IsData() {
		return nil
	}
	return c.retry(ctx, func() error {
		resp, err := c.do(ctx, http.MethodDelete, ContentPath+"/"+id.String(), nil)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
			return responseError(resp)
		}
		return nil
	})
}

// WriteFrom streams content to the server, which stores it in chunks.
//
// The transfer is retried only when the reader is an io.Seeker.
func (c *Client) WriteFrom(ctx context.Context, r io.Reader) (provider.ChunkIdentifier, error) {
	seeker, rewindable := r.(io.Seeker)
	var (
		id       provider.ChunkIdentifier
		attempts int
	)
	err := c.retry(ctx, func() error {
		if attempts > 0 {
			if !rewindable {
				return backoff.Permanent(status.ErrIO.Wrapf("%v: cannot retry a streamed put", c))
			}
			if _, err := seeker.Seek(0, io.SeekStart); err != nil {
				return backoff.Permanent(status.ErrIO.Wrap(err))
			}
		}
		attempts++

		resp, err := c.do(ctx, http.MethodPut, ChunksPath, io.NopCloser(r))
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
			return responseError(resp)
		}
		var reply PutChunksResponse
		if err := msgpack.NewDecoder(resp.Body).Decode(&reply); err != nil {
			return status.ErrIO.Wrapf("remote: decoding chunked put response: %v", err)
		}
		written, err := provider.ParseChunkIdentifier(reply.ID)
		if err != nil {
			return backoff.Permanent(err)
		}
		c.o.l.Debug("remote chunked write", zap.Stringer("id", written), zap.Uint64("size", reply.Size))
		id = written
		return nil
	})
	return id, err
}

// ReadTo streams chunked content from the server to a writer.
//
// The transfer is retried only while nothing was written.
func (c *Client) ReadTo(ctx context.Context, w io.Writer, id provider.ChunkIdentifier) (int64, error) {
	if id.IsZero() {
		return 0, status.ErrInvalid.Wrapf("zero chunk identifier")
	}

	var written int64
	err := c.retry(ctx, func() error {
		resp, err := c.do(ctx, http.MethodGet, ChunksPath+"/"+id.String(), nil)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return responseError(resp)
		}
		n, err := io.Copy(w, io.LimitReader(resp.Body, int64(id.DataSize())+1))
		written += n
		switch {
		case err == nil && written == int64(id.DataSize()):
			return nil
		case written > int64(id.DataSize()):
			return backoff.Permanent(status.ErrCorruptedContent.Wrapf("%v: %v has more than %d bytes", c, id, id.DataSize()))
		case n > 0:
			return backoff.Permanent(status.ErrIO.Wrapf("remote: truncated content for %v: %d/%d bytes: %v", id, written, id.DataSize(), err))
		default:
			return status.ErrIO.Wrapf("remote: truncated content for %v: %d/%d bytes: %v", id, written, id.DataSize(), err)
		}
	})
	return written, err
}

// SupportsUnwrite unless disabled with AllowUnwrite(false)
func (c *Client) SupportsUnwrite() bool { return c.o.allowUnwrite }

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return nil, backoff.Permanent(status.ErrInvalid.Wrap(err))
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	req, ht := nethttp.TraceRequest(c.o.tracer, req, nethttp.OperationName("remote.client."+method))
	defer ht.Finish()

	resp, err := c.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, status.ErrIO.Wrap(err)
	}
	return resp, nil
}

// retry an operation while it fails with an i/o error
func (c *Client) retry(ctx context.Context, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.o.retryInterval
	b := backoff.WithContext(backoff.WithMaxRetries(policy, c.o.maxRetries), ctx)

	return backoff.RetryNotify(func() error {
		err := op()
		if err == nil || errors.Is(err, status.ErrIO) {
			return err
		}
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			return err
		}
		return backoff.Permanent(err)
	}, b, func(err error, wait time.Duration) {
		c.o.l.Debug("retrying remote call", zap.Error(err), zap.Duration("wait", wait))
	})
}

func responseError(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return errorFromResponse(resp, strings.TrimSpace(string(msg)))
}
