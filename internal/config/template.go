package config

import _ "embed"

// Template is the annotated configuration file written by "onioncrawl init".
// It contains the default values.
//
//go:embed template.yaml
var Template []byte
