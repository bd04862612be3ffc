package yaml

import (
	"testing"

	"github.com/codekansas/soc"
)

// FuzzDescriptorParser tests the YAML parser against random/malformed inputs
// to detect crashes, panics, or unexpected behavior.
//
// Run with: go test -fuzz=FuzzDescriptorParser -fuzztime=30s
func FuzzDescriptorParser(f *testing.F) {
	f.Add(soc.Descriptor)
	f.Add([]byte(`name: tool
install_requires:
  - requests[security]>=2.8.1,<3
  - six; python_version < "3"
  - pkg @ https://example.com/pkg.tar.gz
entry_points:
  console_scripts:
    - tool = tool.cli:main [extra]
`))

	// Seed with edge cases
	f.Add([]byte(``))
	f.Add([]byte(`name: ""` + "\n"))
	f.Add([]byte(`{}`))
	f.Add([]byte(`[]`))
	f.Add([]byte("name: test\n  bad"))
	f.Add([]byte("name: x\ninstall_requires: [\"==\"]\n"))
	f.Add([]byte("name: x\nentry_points: {console_scripts: [\"=\"]}\n"))

	parser := NewDescriptorParser()

	f.Fuzz(func(_ *testing.T, data []byte) {
		// Any input may be rejected, none may panic
		_, _ = parser.Parse(data)
	})
}
