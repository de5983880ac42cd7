package trial

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultDir is the folder the original recordings ship in.
const DefaultDir = "GaitData"

const (
	suffixTrunk     = "_lb.txt"
	suffixLeftFoot  = "_lf.txt"
	suffixRightFoot = "_rf.txt"
	suffixMetadata  = ".json"
)

// ErrUnknownCode is returned when a trial code has no recordings in the catalog.
var ErrUnknownCode = errors.New("unknown trial code")

type unknownCodeError string

func (e unknownCodeError) Error() string { return "The following code does not exist: " + string(e) }

func (e unknownCodeError) Is(target error) bool { return target == ErrUnknownCode }

// Code formats the subject-trial identifier used in file names.
func Code(subject, trial int) string {
	return fmt.Sprintf("%d-%d", subject, trial)
}

// Paths locates the four input files of one trial.
type Paths struct {
	Code      string `json:"code"`
	Metadata  string `json:"metadata"`
	Trunk     string `json:"trunk"`
	LeftFoot  string `json:"left_foot"`
	RightFoot string `json:"right_foot"`
}

// Sources returns the inputs in a stable role order.
func (p Paths) Sources() []Source {
	return []Source{
		{Role: "metadata", Path: p.Metadata},
		{Role: "trunk", Path: p.Trunk},
		{Role: "left_foot", Path: p.LeftFoot},
		{Role: "right_foot", Path: p.RightFoot},
	}
}

// Source is one named input file.
type Source struct {
	Role string
	Path string
}

// Catalog is a folder of recordings named <code>_lb.txt, <code>_lf.txt, <code>_rf.txt and <code>.json.
type Catalog struct {
	Dir string
}

// Codes lists every trial that has a left-foot recording, sorted.
func (c Catalog) Codes() ([]string, error) {
	entries, err := os.ReadDir(c.dir())
	if err != nil {
		return nil, fmt.Errorf("read data folder: %w", err)
	}
	codes := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, suffixLeftFoot) {
			codes = append(codes, strings.TrimSuffix(name, suffixLeftFoot))
		}
	}
	sort.Strings(codes)
	return codes, nil
}

// Resolve checks that code exists and returns the paths of its files.
func (c Catalog) Resolve(code string) (Paths, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Paths{}, fmt.Errorf("trial code is required")
	}
	codes, err := c.Codes()
	if err != nil {
		return Paths{}, err
	}
	i := sort.SearchStrings(codes, code)
	if i >= len(codes) || codes[i] != code {
		return Paths{}, unknownCodeError(code)
	}
	base := filepath.Join(c.dir(), code)
	return Paths{
		Code:      code,
		Metadata:  base + suffixMetadata,
		Trunk:     base + suffixTrunk,
		LeftFoot:  base + suffixLeftFoot,
		RightFoot: base + suffixRightFoot,
	}, nil
}

func (c Catalog) dir() string {
	if strings.TrimSpace(c.Dir) == "" {
		return DefaultDir
	}
	return c.Dir
}
