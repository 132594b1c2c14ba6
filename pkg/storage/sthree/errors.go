package sthree

import (
	"context"
	"net/http"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/oneconcern/contentstore/pkg/errors"
	"github.com/oneconcern/contentstore/pkg/storage/status"
)

// missingCodes are the S3 error codes reporting an absent object or bucket.
// NotFound is returned by HEAD requests, and by minio.
var missingCodes = map[string]*errors.Error{
	"NoSuchKey":    status.ErrNotExists,
	"NotFound":     status.ErrNotExists,
	"NoSuchBucket": status.ErrNotFound,
}

func filterErrNotExists(err error) error {
	if status.IsNotExist(err) {
		return nil
	}
	return err
}

// toSentinelErrors maps S3 API errors to the storage sentinels.
// See https://docs.aws.amazon.com/AmazonS3/latest/API/ErrorResponses.html#ErrorCodeList
func toSentinelErrors(err error) error {
	if err == nil {
		return nil
	}
	var awsErr awserr.Error
	if !errors.As(err, &awsErr) {
		return err
	}
	if awsErr.Code() == request.CanceledErrorCode {
		return context.Canceled
	}
	if sentinel, ok := missingCodes[awsErr.Code()]; ok {
		return sentinel.Wrap(err)
	}

	var reqErr awserr.RequestFailure
	if !errors.As(err, &reqErr) {
		return status.ErrStorageAPI.Wrap(err)
	}
	switch reqErr.StatusCode() {
	case http.StatusBadRequest:
		if reqErr.Code() == "InvalidBucketName" {
			return status.ErrInvalidResource.Wrap(err)
		}
	case http.StatusUnauthorized:
		return status.ErrUnauthorized.Wrap(err)
	case http.StatusForbidden:
		return status.ErrForbidden.Wrap(err)
	case http.StatusNotFound:
		return status.ErrNotFound.Wrap(err)
	case http.StatusPreconditionFailed:
		return status.ErrExists.Wrap(err)
	}
	return status.ErrStorageAPI.Wrap(err)
}
