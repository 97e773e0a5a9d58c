// Package minecraft lists game versions and downloads their client jars.
package minecraft

import (
	"regexp"
	"sort"

	"github.com/hashicorp/go-version"
)

// ManifestURL is the launcher's version manifest.
const ManifestURL = "https://piston-meta.mojang.com/mc/game/version_manifest_v2.json"

// MinMajor is the first release line that ships unobfuscated jars.
const MinMajor = 26

type VersionEntry struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	URL         string `json:"url"`
	Time        string `json:"time"`
	ReleaseTime string `json:"releaseTime"`
	SHA1        string `json:"sha1"`
}

type VersionList struct {
	Versions []VersionEntry `json:"versions"`
}

type Download struct {
	URL  string `json:"url"`
	SHA1 string `json:"sha1"`
	Size int64  `json:"size"`
}

// VersionManifest is the per-version document a VersionEntry points at.
type VersionManifest struct {
	ID        string              `json:"id"`
	Downloads map[string]Download `json:"downloads"`
}

// Client returns the client jar download.
func (m VersionManifest) Client() (Download, bool) {
	d, ok := m.Downloads["client"]
	return d, ok && d.URL != ""
}

var majorMinor = regexp.MustCompile(`^(\d+\.\d+)`)

// Supported reports whether id belongs to a release line at or after MinMajor.
// Snapshot ids such as "25w45a" never qualify.
func Supported(id string) bool {
	m := majorMinor.FindStringSubmatch(id)
	if m == nil {
		return false
	}
	v, err := version.NewVersion(m[1])
	if err != nil {
		return false
	}
	return v.Segments()[0] >= MinMajor
}

// Filter keeps supported launcher versions, appends the experimental builds
// and orders the result newest first.
func Filter(list VersionList) []VersionEntry {
	out := make([]VersionEntry, 0, len(list.Versions)+len(experimental))
	for _, v := range list.Versions {
		if Supported(v.ID) {
			out = append(out, v)
		}
	}
	out = append(out, experimental...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ReleaseTime > out[j].ReleaseTime })
	return out
}

// Find looks up id in versions.
func Find(versions []VersionEntry, id string) (VersionEntry, bool) {
	for _, v := range versions {
		if v.ID == id {
			return v, true
		}
	}
	return VersionEntry{}, false
}

// Experimental returns the unobfuscated builds published outside the
// launcher manifest.
func Experimental() []VersionEntry {
	return append([]VersionEntry(nil), experimental...)
}

func unobfuscated(id, file, when, sha1 string) VersionEntry {
	return VersionEntry{
		ID:          id,
		Type:        "unobfuscated",
		URL:         "https://maven.fabricmc.net/net/minecraft/" + file + ".json",
		Time:        when,
		ReleaseTime: when,
		SHA1:        sha1,
	}
}

var experimental = []VersionEntry{
	unobfuscated("25w45a_unobfuscated", "25w45a_unobfuscated", "2025-11-04T14:07:08+00:00", "7a3c149f148b6aa5ac3af48c4f701adea7e5b615"),
	unobfuscated("25w46a_unobfuscated", "25w46a_unobfuscated", "2025-11-11T13:20:54+00:00", "314ade2afeada364047798e163ef8e82427c69e1"),
	unobfuscated("1.21.11-pre1_unobfuscated", "1_21_11-pre1_unobfuscated", "2025-11-19T08:30:46+00:00", "9c267f8dda2728bae55201a753cdd07b584709f1"),
	unobfuscated("1.21.11-pre2_unobfuscated", "1_21_11-pre2_unobfuscated", "2025-11-21T12:07:21+00:00", "2955ce0af0512fdfe53ff0740b017344acf6f397"),
	unobfuscated("1.21.11-pre3_unobfuscated", "1_21_11-pre3_unobfuscated", "2025-11-25T14:14:30+00:00", "579bf3428f72b5ea04883d202e4831bfdcb2aa8d"),
	unobfuscated("1.21.11-pre4_unobfuscated", "1_21_11-pre4_unobfuscated", "2025-12-01T13:40:12+00:00", "410ce37a2506adcfd54ef7d89168cfbe89cac4cb"),
	unobfuscated("1.21.11-pre5_unobfuscated", "1_21_11-pre5_unobfuscated", "2025-12-03T13:34:06+00:00", "1028441ca6d288bbf2103e773196bf524f7260fd"),
	unobfuscated("1.21.11-rc1_unobfuscated", "1_21_11-rc1_unobfuscated", "2025-12-04T15:56:55+00:00", "5d3ee0ef1f0251cf7e073354ca9e085a884a643d"),
	unobfuscated("1.21.11-rc2_unobfuscated", "1_21_11-rc2_unobfuscated", "2025-12-05T11:57:45+00:00", "9282a3fb154d2a425086c62c11827281308bf93b"),
	unobfuscated("1.21.11-rc3_unobfuscated", "1_21_11-rc3_unobfuscated", "2025-12-08T13:59:34+00:00", "ce3f7ac6d0e9d23ea4e5f0354b91ff15039d9931"),
	unobfuscated("1.21.11_unobfuscated", "1_21_11_unobfuscated", "2025-12-09T12:43:15+00:00", "327be7759157b04495c591dbb721875e341877af"),
}
