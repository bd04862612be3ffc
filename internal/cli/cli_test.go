package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs pysoc in a scratch working directory so no user config is read
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cmd := Command()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--no-color"}, args...))

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, path, content string, mode os.FileMode) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), mode))
}

func TestRegistry_ResolvesConsoleScript(t *testing.T) {
	r := Registry()
	factory, ok := r.Lookup(Reference)
	require.True(t, ok)
	assert.Equal(t, "pysoc", factory().Name())
	assert.Equal(t, []string{Reference}, r.References())
}

func TestHelp(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)

	assert.Contains(t, out, "Easily access online datasets.")
	for _, name := range []string{"info", "deps", "entry-points", "validate", "render", "check", "verify", "audit", "outdated", "version"} {
		assert.Contains(t, out, name)
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "pysoc 0.0.1\n", out)
}

func TestLogFormatFlagOverridesEnvironment(t *testing.T) {
	t.Setenv("PYSOC_LOG_FORMAT", "xml")

	_, err := execute(t, "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.format")

	out, err := execute(t, "--log-format", "json", "version")
	require.NoError(t, err)
	assert.Equal(t, "pysoc 0.0.1\n", out)
}

func TestInfo(t *testing.T) {
	out, err := execute(t, "info")
	require.NoError(t, err)
	assert.Contains(t, out, "codekansas <ben@bolte.cc>")
	assert.Contains(t, out, "numpy==1.12")

	out, err = execute(t, "info", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "soc"`)

	_, err = execute(t, "info", "-o", "xml")
	assert.Error(t, err)
}

func TestInfo_ConfigOutput(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "pysoc.yaml")
	writeFile(t, cfg, "output: yaml\n", 0o600)

	out, err := execute(t, "--config", cfg, "info")
	require.NoError(t, err)
	assert.Contains(t, out, "name: soc")
}

func TestDeps(t *testing.T) {
	out, err := execute(t, "deps", "--group", "install")
	require.NoError(t, err)
	assert.Contains(t, out, "numpy")
	assert.Contains(t, out, "click")
	assert.NotContains(t, out, "pytest")

	out, err = execute(t, "deps")
	require.NoError(t, err)
	assert.Contains(t, out, "pytest-runner")

	_, err = execute(t, "deps", "--group", "docs")
	assert.Error(t, err)
}

func TestEntryPoints(t *testing.T) {
	out, err := execute(t, "entry-points", "--resolve")
	require.NoError(t, err)
	assert.Contains(t, out, "soc.cli:cli")
	assert.Contains(t, out, "yes")
}

func TestValidate(t *testing.T) {
	t.Run("embedded", func(t *testing.T) {
		out, err := execute(t, "validate")
		require.NoError(t, err)
		assert.Contains(t, out, "embedded descriptor is valid")
		assert.Contains(t, out, "numpy is pinned")
	})

	t.Run("strict", func(t *testing.T) {
		_, err := execute(t, "validate", "--strict")
		assert.ErrorIs(t, err, errInvalidDescriptor)
	})

	t.Run("schema violation", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yml")
		writeFile(t, path, "name: soc\nversion: 1\nhomepage: x\n", 0o600)

		out, err := execute(t, "validate", path)
		assert.ErrorIs(t, err, errInvalidDescriptor)
		assert.Contains(t, out, "is invalid")
	})

	t.Run("rule violation", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "norules.yml")
		writeFile(t, path, "name: soc\nversion: 0.0.1\n", 0o600)

		out, err := execute(t, "validate", path)
		assert.ErrorIs(t, err, errInvalidDescriptor)
		assert.Contains(t, out, "license")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := execute(t, "validate", filepath.Join(t.TempDir(), "absent.yml"))
		assert.Error(t, err)
	})
}

func TestRender(t *testing.T) {
	out, err := execute(t, "render")
	require.NoError(t, err)
	assert.Contains(t, out, "[project]")

	_, err = execute(t, "render", "--format", "table")
	assert.Error(t, err)

	target := filepath.Join(t.TempDir(), "pyproject.toml")
	out, err = execute(t, "render", "--format", "toml", "--out", target)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+target)

	// the rendered manifest is itself a valid descriptor
	out, err = execute(t, "validate", target)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")
}

// sitePackages lays out an environment where every soc requirement is installed
func sitePackages(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	site := filepath.Join(root, "site-packages")
	bin := filepath.Join(root, "bin")

	for _, dist := range [][2]string{{"soc", "0.0.1"}, {"numpy", "1.12.0"}, {"six", "1.10.0"}, {"click", "6.7"}} {
		info := filepath.Join(site, dist[0]+"-"+dist[1]+".dist-info")
		writeFile(t, filepath.Join(info, "METADATA"), "Metadata-Version: 2.1\nName: "+dist[0]+"\nVersion: "+dist[1]+"\n", 0o600)
		writeFile(t, filepath.Join(info, "RECORD"), dist[0]+"/__init__.py,sha256=47DEQpj8HBSa-_TImW-5JCeuQeRkm5NMpJWZG3hSuFU,0\n", 0o600)
		writeFile(t, filepath.Join(site, dist[0], "__init__.py"), "", 0o600)
	}
	writeFile(t, filepath.Join(bin, "pysoc"), "#!/bin/sh\n", 0o755)

	return site, bin
}

func TestCheck(t *testing.T) {
	t.Run("complete", func(t *testing.T) {
		site, bin := sitePackages(t)

		out, err := execute(t, "check", "--site-packages", site, "--bin-dir", bin, "--verify-records")
		require.NoError(t, err)
		assert.Contains(t, out, "is complete")
		assert.Contains(t, out, "3/3 satisfied")
		assert.Contains(t, out, "0 mismatched")
	})

	t.Run("missing requirement", func(t *testing.T) {
		site, bin := sitePackages(t)
		require.NoError(t, os.RemoveAll(filepath.Join(site, "numpy-1.12.0.dist-info")))

		out, err := execute(t, "check", "--site-packages", site, "--bin-dir", bin)
		assert.ErrorIs(t, err, errCheckFailed)
		assert.Contains(t, out, "missing")
	})

	t.Run("tampered file", func(t *testing.T) {
		site, bin := sitePackages(t)
		writeFile(t, filepath.Join(site, "six", "__init__.py"), "print('hi')\n", 0o600)

		out, err := execute(t, "check", "--site-packages", site, "--bin-dir", bin, "--verify-records")
		assert.ErrorIs(t, err, errCheckFailed)
		assert.Contains(t, out, "six/__init__.py")
	})

	t.Run("no site-packages", func(t *testing.T) {
		_, err := execute(t, "check")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--site-packages")
	})
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()

	entity, err := openpgp.NewEntity("codekansas", "", "ben@bolte.cc", nil)
	require.NoError(t, err)

	var key bytes.Buffer
	w, err := armor.Encode(&key, openpgp.PublicKeyType, nil)
	require.NoError(t, err)
	require.NoError(t, entity.Serialize(w))
	require.NoError(t, w.Close())
	keyPath := filepath.Join(dir, "key.asc")
	writeFile(t, keyPath, key.String(), 0o600)

	file := filepath.Join(dir, "soc.yml")
	writeFile(t, file, "name: soc\n", 0o600)

	var sig bytes.Buffer
	require.NoError(t, openpgp.ArmoredDetachSign(&sig, entity, strings.NewReader("name: soc\n"), nil))
	writeFile(t, file+".asc", sig.String(), 0o600)

	out, err := execute(t, "verify", file, "--key", keyPath)
	require.NoError(t, err)
	assert.Contains(t, out, "good signature from codekansas <ben@bolte.cc>")

	writeFile(t, file, "name: not-soc\n", 0o600)
	out, err = execute(t, "verify", file, "--sig", file+".asc", "--key", keyPath)
	assert.Error(t, err)
	assert.Contains(t, out, "NOT verified")

	_, err = execute(t, "verify", file)
	assert.Error(t, err)
}

// osvServer answers OSV queries with one critical advisory for numpy 1.12.x
func osvServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var q struct {
			Package struct {
				Name string `json:"name"`
			} `json:"package"`
			Version string `json:"version"`
		}
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if q.Package.Name != "numpy" || !strings.HasPrefix(q.Version, "1.12") {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		_, _ = w.Write([]byte(`{"vulns":[{"id":"PYSEC-2019-108","summary":"pickle","database_specific":{"severity":"CRITICAL"},` +
			`"affected":[{"package":{"name":"numpy","ecosystem":"PyPI"},"ranges":[{"type":"ECOSYSTEM","events":[{"introduced":"0"},{"fixed":"1.16.3"}]}]}]}]}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestAudit(t *testing.T) {
	t.Run("pinned requirements", func(t *testing.T) {
		t.Setenv("PYSOC_AUDIT_OSV_URL", osvServer(t).URL)

		out, err := execute(t, "audit")
		assert.ErrorIs(t, err, errVulnerable)
		assert.Contains(t, out, "PYSEC-2019-108")
		assert.Contains(t, out, "1.16.3")
		assert.Contains(t, out, "2 skipped: six, click")
	})

	t.Run("installed versions", func(t *testing.T) {
		t.Setenv("PYSOC_AUDIT_OSV_URL", osvServer(t).URL)
		site, _ := sitePackages(t)

		out, err := execute(t, "audit", "--site-packages", site)
		assert.ErrorIs(t, err, errVulnerable)
		assert.Contains(t, out, "1.12.0 (installed)")
		assert.Contains(t, out, "Audited 3 requirements")
	})

	t.Run("tests group is clean", func(t *testing.T) {
		t.Setenv("PYSOC_AUDIT_OSV_URL", osvServer(t).URL)
		site, _ := sitePackages(t)
		writeFile(t, filepath.Join(site, "pytest-7.4.0.dist-info", "METADATA"), "Name: pytest\nVersion: 7.4.0\n", 0o600)

		out, err := execute(t, "audit", "--site-packages", site, "--group", "tests")
		require.NoError(t, err)
		assert.Contains(t, out, "No known vulnerabilities")
	})

	t.Run("severity from cvss vectors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"vulns":[` +
				`{"id":"PYSEC-2019-108","severity":[{"type":"CVSS_V3","score":"CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:N/I:N/A:H"}]},` +
				`{"id":"PYSEC-2024-1","severity":[{"type":"CVSS_V4","score":"CVSS:4.0/AV:N/AC:L/AT:N/PR:N/UI:N/VC:H/VI:H/VA:H/SC:N/SI:N/SA:N"}]}]}`))
		}))
		t.Cleanup(server.Close)
		t.Setenv("PYSOC_AUDIT_OSV_URL", server.URL)

		out, err := execute(t, "audit")
		assert.ErrorIs(t, err, errVulnerable)
		assert.Contains(t, out, "PYSEC-2019-108")
		assert.Contains(t, out, "PYSEC-2024-1")
		assert.Contains(t, out, "highest severity HIGH")

		out, err = execute(t, "audit", "--min-severity", "medium")
		assert.ErrorIs(t, err, errVulnerable)
		assert.NotContains(t, out, "PYSEC-2024-1")

		out, err = execute(t, "audit", "--min-severity", "critical")
		require.NoError(t, err)
		assert.Contains(t, out, "No known vulnerabilities")
	})

	t.Run("unreachable database", func(t *testing.T) {
		server := osvServer(t)
		t.Setenv("PYSOC_AUDIT_OSV_URL", server.URL)
		server.Close()

		_, err := execute(t, "audit")
		assert.Error(t, err)
	})
}

func TestOutdated(t *testing.T) {
	index := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/pypi/numpy/json":
			_, _ = w.Write([]byte(`{"info":{"version":"2.2.1"},"releases":{"1.12.0":[{"yanked":false}],"2.2.1":[{"yanked":false}]}}`))
		case "/pypi/six/json":
			_, _ = w.Write([]byte(`{"info":{"version":"1.17.0"},"releases":{"1.17.0":[{"yanked":false}]}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(index.Close)
	t.Setenv("PYSOC_INDEX_URL", index.URL)

	site, _ := sitePackages(t)
	out, err := execute(t, "outdated", "--site-packages", site)
	require.NoError(t, err)

	assert.Contains(t, out, "2.2.1")
	assert.Contains(t, out, "1 held back by their specifiers")
	assert.Contains(t, out, "2 installed behind the latest release")
	assert.Contains(t, out, "1 not on the index")
}
