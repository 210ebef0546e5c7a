package mlmodel

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestLabelLookup(t *testing.T) {
	lt := LabelTable{"person", "", "car"}
	test.That(t, lt.Label(0), test.ShouldEqual, "person")
	test.That(t, lt.Label(2), test.ShouldEqual, "car")
	test.That(t, lt.Label(1), test.ShouldEqual, "1")
	test.That(t, lt.Label(7), test.ShouldEqual, "7")
	test.That(t, lt.Label(-1), test.ShouldEqual, "-1")
	test.That(t, LabelTable(nil).Label(0), test.ShouldEqual, "0")
}

func TestReadLabelFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "labels.txt")
	test.That(t, os.WriteFile(p, []byte("person\n  bicycle \n\ncar\n\n\n"), 0o600), test.ShouldBeNil)

	lt, err := ReadLabelFile(p)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, lt, test.ShouldResemble, LabelTable{"person", "bicycle", "", "car"})

	empty := filepath.Join(dir, "empty.txt")
	test.That(t, os.WriteFile(empty, []byte("\n\n"), 0o600), test.ShouldBeNil)
	_, err = ReadLabelFile(empty)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "empty")

	_, err = ReadLabelFile(filepath.Join(dir, "missing.txt"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestParseLabelDict(t *testing.T) {
	t.Run("dict", func(t *testing.T) {
		lt, err := ParseLabelDict(`{0: 'bot', 1: "ball", 3: 'goal'}`)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, lt, test.ShouldResemble, LabelTable{"bot", "ball", "", "goal"})
		test.That(t, lt.Label(2), test.ShouldEqual, "2")
	})
	t.Run("list", func(t *testing.T) {
		lt, err := ParseLabelDict(`['bot', "ball"]`)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, lt, test.ShouldResemble, LabelTable{"bot", "ball"})
	})
	t.Run("garbage", func(t *testing.T) {
		_, err := ParseLabelDict("bot,ball")
		test.That(t, err, test.ShouldNotBeNil)
		_, err = ParseLabelDict("{}")
		test.That(t, err, test.ShouldNotBeNil)
	})
}
