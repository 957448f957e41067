/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"os"

	// registers the sample models available to load-all
	_ "github.com/suparena/modelsync/datastore/testmodels"
)

func main() {
	if err := newRootCmd(os.Stdout, nil).Execute(); err != nil {
		os.Exit(1)
	}
}
