// Directory scanning for the packer, adapted from the teacher's
// internal/walk concurrent fs.FS walker: fan out one goroutine per
// subdirectory, feed a channel of file paths, and let the caller impose
// whatever final ordering it needs (here: lexical, for determinism
// across runs — spec section 4.7 only requires the packer honor
// whatever order the caller's entry list already has).
package pack

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"sync"
)

// listFiles returns every regular file under fsys, relative to its root,
// with a leading slash, normalized with forward slashes.
func listFiles(fsys fs.FS) ([]string, error) {
	ch, wg := make(chan string), new(sync.WaitGroup)
	errCh := make(chan error, 1)

	wg.Add(1)
	go walkDir(fsys, ".", ch, wg, errCh)
	go func() { wg.Wait(); close(ch) }()

	var out []string
	for p := range ch {
		out = append(out, "/"+p)
	}
	select {
	case err := <-errCh:
		return nil, err
	default:
	}
	sort.Strings(out)
	return out, nil
}

func walkDir(fsys fs.FS, name string, ch chan<- string, wg *sync.WaitGroup, errCh chan<- error) {
	defer wg.Done()
	f, err := fsys.Open(name)
	if err != nil {
		trySend(errCh, err)
		return
	}
	defer f.Close()
	dir, ok := f.(fs.ReadDirFile)
	if !ok {
		trySend(errCh, fmt.Errorf("pack: %q does not support directory listing", name))
		return
	}
	for {
		entries, err := dir.ReadDir(64)
		for _, de := range entries {
			child := path.Join(name, de.Name())
			if de.IsDir() {
				wg.Add(1)
				go walkDir(fsys, child, ch, wg, errCh)
			} else if de.Type().IsRegular() {
				ch <- child
			}
		}
		if err != nil {
			return
		}
	}
}

func trySend(errCh chan<- error, err error) {
	select {
	case errCh <- err:
	default:
	}
}
