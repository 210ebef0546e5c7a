package mlmodel

import (
	"bufio"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// LabelTable maps class ids to class names.
type LabelTable []string

// Label returns the name of a class id. Lookup is total: ids without a name come back as
// their decimal string.
func (lt LabelTable) Label(id int) string {
	if id >= 0 && id < len(lt) && lt[id] != "" {
		return lt[id]
	}
	return strconv.Itoa(id)
}

// ReadLabelFile reads one label per line. Blank lines keep their slot so ids stay aligned.
func ReadLabelFile(path string) (LabelTable, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open label file %q", path)
	}
	defer f.Close()

	var labels LabelTable
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		labels = append(labels, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "could not read label file %q", path)
	}
	for len(labels) > 0 && labels[len(labels)-1] == "" {
		labels = labels[:len(labels)-1]
	}
	if len(labels) == 0 {
		return nil, errors.Errorf("label file %q is empty", path)
	}
	return labels, nil
}

var (
	dictEntry = regexp.MustCompile(`(\d+)\s*:\s*(?:'([^']*)'|"([^"]*)")`)
	listEntry = regexp.MustCompile(`'([^']*)'|"([^"]*)"`)
)

// ParseLabelDict parses the class names YOLO exports embed in model metadata, either a dict
// literal like {0: 'person', 1: 'bicycle'} or a list literal like ['person', 'bicycle'].
func ParseLabelDict(s string) (LabelTable, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "{"):
		matches := dictEntry.FindAllStringSubmatch(s, -1)
		if len(matches) == 0 {
			return nil, errors.Errorf("no labels found in %q", s)
		}
		byID := make(map[int]string, len(matches))
		maxID := -1
		for _, m := range matches {
			id, err := strconv.Atoi(m[1])
			if err != nil {
				return nil, errors.Wrapf(err, "bad class id %q", m[1])
			}
			byID[id] = m[2] + m[3]
			maxID = max(maxID, id)
		}
		labels := make(LabelTable, maxID+1)
		for id, name := range byID {
			labels[id] = name
		}
		return labels, nil
	case strings.HasPrefix(s, "["):
		matches := listEntry.FindAllStringSubmatch(s, -1)
		if len(matches) == 0 {
			return nil, errors.Errorf("no labels found in %q", s)
		}
		labels := make(LabelTable, 0, len(matches))
		for _, m := range matches {
			labels = append(labels, m[1]+m[2])
		}
		return labels, nil
	default:
		return nil, errors.Errorf("unrecognized label metadata %q", s)
	}
}
