package archive

import (
	"bufio"
	"bytes"
	"strings"
)

// ManifestPath is the conventional location of a jar's manifest entry.
const ManifestPath = "META-INF/MANIFEST.MF"

// Manifest is the minimal subset of a jar manifest this loader understands:
// plain `Key: Value` lines, per §6.
type Manifest struct {
	Values map[string]string

	// MainClass is Values["Main-Class"] converted from dot-delimited to
	// slash-delimited internal form, ready to key the class map.
	MainClass string
}

// parseManifest reads `Key: Value` lines, tolerating blank lines and
// trailing whitespace. A key repeated more than once is an anomaly, not an
// error — the last value wins, matching how most jar tooling behaves.
func parseManifest(data []byte) (Manifest, []string) {
	m := Manifest{Values: make(map[string]string)}
	var anomalies []string

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t\r")
		if line == "" {
			continue
		}
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			continue
		}
		key := strings.TrimSpace(line[:colon])
		value := strings.TrimSpace(line[colon+1:])
		if _, dup := m.Values[key]; dup {
			anomalies = append(anomalies, AnoDuplicateManifestKey+": "+key)
		}
		m.Values[key] = value
	}

	if mc, ok := m.Values["Main-Class"]; ok {
		m.MainClass = strings.ReplaceAll(mc, ".", "/")
	}
	return m, anomalies
}
