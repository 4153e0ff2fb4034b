// Package factory implements a small generic registry mapping a module type
// name to a constructor. It is used to build metrics sinks from their names
// in configuration.
package factory
