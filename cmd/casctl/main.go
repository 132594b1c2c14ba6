// Copyright © 2018 One Concern

package main

import (
	"github.com/oneconcern/contentstore/cmd/casctl/cmd"
)

func main() {
	cmd.Execute()
}
