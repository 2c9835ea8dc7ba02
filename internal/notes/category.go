// Package notes imports annotations into a project: it keeps the category
// hierarchy notes are filed under and inserts notes in reference order
// without duplicating ones already present.
package notes

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// PathSeparator divides the levels of a category path, e.g. "Discourse:Cohesion".
const PathSeparator = ":"

// Category is one node of the category hierarchy.
type Category struct {
	Name     string
	Parent   *Category
	Children []*Category
}

// Path returns the full separator-joined path of the category.
func (c *Category) Path() string {
	if c.Parent == nil {
		return c.Name
	}
	return c.Parent.Path() + PathSeparator + c.Name
}

func (c *Category) child(name string) *Category {
	for _, ch := range c.Children {
		if ch.Name == name {
			return ch
		}
	}
	return nil
}

// CategoryList is a hierarchy of categories addressed by path. Names are
// compared after NFC normalization.
type CategoryList struct {
	root Category
}

// NewCategoryList builds a list from existing paths.
func NewCategoryList(paths []string) *CategoryList {
	l := &CategoryList{}
	for _, p := range paths {
		l.FindOrCreate(p)
	}
	return l
}

func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, PathSeparator) {
		p = strings.TrimSpace(norm.NFC.String(p))
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// Find returns the category at path, or nil.
func (l *CategoryList) Find(path string) *Category {
	parts := splitPath(path)
	if len(parts) == 0 {
		return nil
	}
	node := &l.root
	for _, name := range parts {
		if node = node.child(name); node == nil {
			return nil
		}
	}
	return node
}

// FindOrCreate returns the category at path, creating any missing levels.
// created reports whether anything was added.
func (l *CategoryList) FindOrCreate(path string) (cat *Category, created bool) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return nil, false
	}
	node := &l.root
	for _, name := range parts {
		next := node.child(name)
		if next == nil {
			next = &Category{Name: name}
			if node != &l.root {
				next.Parent = node
			}
			node.Children = append(node.Children, next)
			created = true
		}
		node = next
	}
	return node, created
}

// Paths lists every leaf path in insertion order.
func (l *CategoryList) Paths() []string {
	var out []string
	var walk func(c *Category)
	walk = func(c *Category) {
		if len(c.Children) == 0 {
			out = append(out, c.Path())
			return
		}
		for _, ch := range c.Children {
			walk(ch)
		}
	}
	for _, c := range l.root.Children {
		walk(c)
	}
	return out
}
