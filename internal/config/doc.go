// Package config loads and validates reflow.yaml project configuration.
//
// Configuration is optional: a missing file yields working defaults, and
// any field absent from the file keeps its default value.
package config
