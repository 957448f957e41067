/*
Package config loads client configuration for modelsync.

Settings are layered: built-in defaults, then an optional YAML file, then a
.env file, then MODELSYNC_* environment variables:

	backend: dynamodb
	dynamodb:
	  region: us-east-1
	  tablePrefix: dev_
	log:
	  level: debug
	  format: json

Validate fills unset values with defaults and rejects settings the selected
backend cannot start with.
*/
package config
