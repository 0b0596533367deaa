package consolidate

import (
	"fmt"
	"path"
	"sort"

	"github.com/starford/othala/internal/docfolder"
	"github.com/starford/othala/internal/markdown"
)

// planAttachments assigns a collision-free merged name to every attachment
// file that physically exists in a source's images directory, rewrites the
// source bodies accordingly, and returns the number of files scheduled for
// copying. Markdown references to files that do not exist on disk are left
// untouched, so broken links survive the merge verbatim instead of being
// silently dropped.
func (e *Engine) planAttachments(sources []*source) int {
	used := make(map[string]struct{})
	total := 0
	for _, src := range sources {
		names := e.listImages(src.path)
		mapping := make(map[string]string, len(names))
		for _, name := range names {
			target := name
			if _, taken := used[target]; taken {
				// Second source with the same file name: prefix with the
				// source folder name, then a counter if still taken.
				target = src.name + "-" + name
				for i := 2; ; i++ {
					if _, stillTaken := used[target]; !stillTaken {
						break
					}
					target = fmt.Sprintf("%s-%d-%s", src.name, i, name)
				}
			}
			used[target] = struct{}{}
			mapping[name] = target
			src.images = append(src.images, imageCopy{
				fromRel: path.Join(src.path, docfolder.ImagesDirName, name),
				target:  target,
			})
			total++
		}
		src.body = markdown.RewriteImageRefs(src.body, mapping)
	}
	return total
}

// listImages returns the sorted file names present in a source's attachments
// directory. A missing directory yields nothing.
func (e *Engine) listImages(folder string) []string {
	store := e.mgr.Store()
	dir := path.Join(folder, docfolder.ImagesDirName)
	if !store.DirExists(dir) {
		return nil
	}
	entries, err := store.ListDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names
}
