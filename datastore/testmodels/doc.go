// Package testmodels holds persisted types shared by driver and facade tests.
package testmodels
