package pipeline

import "path/filepath"

// FilteredManifestName is the fixed filename of the derived output manifest.
const FilteredManifestName = "manifest_filtered.json"

// FilteredManifestPath derives the output manifest location: a sibling of the
// input manifest with the fixed filtered-manifest filename.
func FilteredManifestPath(manifest string) string {
	return filepath.Join(filepath.Dir(manifest), FilteredManifestName)
}
