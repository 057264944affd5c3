package source

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Naming is the file naming template of a numbered frame sequence:
// <dir>/<base><zero padded number>.<ext>
type Naming struct {
	Dir   string
	Base  string
	Pad   int
	Start int
}

// Frame describes one frame of a sequence.
type Frame struct {
	Index int
	Stem  string
}

// URLs returns the frame references in extension preference order.
func (f Frame) URLs(exts []string) []string {
	urls := make([]string, len(exts))
	for i, ext := range exts {
		urls[i] = f.Stem + "." + ext
	}
	return urls
}

// Stem is the extensionless path of frame index.
func (n Naming) Stem(index int) string {
	name := fmt.Sprintf("%s%0*d", n.Base, n.Pad, n.Start+index)
	if n.Dir == "" {
		return name
	}
	return strings.TrimSuffix(n.Dir, "/") + "/" + name
}

// Frames builds the ordered descriptors of a sequence of count frames.
func (n Naming) Frames(count int) []Frame {
	if count <= 0 {
		return nil
	}
	frames := make([]Frame, count)
	for i := range frames {
		frames[i] = Frame{Index: i, Stem: n.Stem(i)}
	}
	return frames
}

var frameName = regexp.MustCompile(`^(.*?)(\d+)\.([A-Za-z0-9]+)$`)

// Detected is what DetectNaming learned about a frame directory.
type Detected struct {
	Naming Naming
	Count  int
	Ext    string
}

// DetectNaming scans a directory of numbered frames (HERO001.webp,
// HERO002.webp, ...) and infers the template. The most common base/ext pair
// wins; the count is the length of the contiguous run from the lowest number.
func DetectNaming(dir string) (*Detected, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	type key struct{ base, ext string }
	groups := map[key][]string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := frameName.FindStringSubmatch(entry.Name())
		if m == nil || !supportedExt(m[3]) {
			continue
		}
		k := key{m[1], strings.ToLower(m[3])}
		groups[k] = append(groups[k], m[2])
	}

	var best key
	for k, nums := range groups {
		if len(nums) > len(groups[best]) || (len(nums) == len(groups[best]) && k.base+k.ext < best.base+best.ext) {
			best = k
		}
	}
	nums := groups[best]
	if len(nums) == 0 {
		return nil, fmt.Errorf("no numbered frames found in %s", dir)
	}

	sort.Slice(nums, func(i, j int) bool {
		a, _ := strconv.Atoi(nums[i])
		b, _ := strconv.Atoi(nums[j])
		return a < b
	})

	start, _ := strconv.Atoi(nums[0])
	count := 0
	for i, s := range nums {
		v, _ := strconv.Atoi(s)
		if v != start+i {
			break
		}
		count++
	}

	// The lowest number carries the full zero padding width.
	pad := len(nums[0])

	return &Detected{
		Naming: Naming{Dir: filepath.ToSlash(dir), Base: best.base, Pad: pad, Start: start},
		Count:  count,
		Ext:    best.ext,
	}, nil
}

func supportedExt(ext string) bool {
	switch strings.ToLower(ext) {
	case "webp", "png", "jpg", "jpeg":
		return true
	}
	return false
}
