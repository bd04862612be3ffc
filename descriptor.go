// Package soc ships the package descriptor that pysoc is built from.
package soc

import _ "embed"

// Descriptor is the raw soc.yml document embedded at build time.
//
//go:embed soc.yml
var Descriptor []byte

// DescriptorFile is the file name Descriptor was embedded from.
const DescriptorFile = "soc.yml"
