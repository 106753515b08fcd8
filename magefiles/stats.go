//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// sourceRoots are the directories whose Go code is counted.
var sourceRoots = []string{"cmd", "internal", "pkg"}

// docFiles are the project documents whose words are counted.
var docFiles = []string{"SPEC_FULL.md", "DESIGN.md"}

// pkgStats counts the Go lines of one package directory.
type pkgStats struct {
	Package string `json:"package"`
	Prod    int    `json:"prod"`
	Test    int    `json:"test"`
}

// Stats prints one JSON line with Go line counts per package and in total,
// and word counts of the project documents.
func Stats() error {
	byPkg := make(map[string]*pkgStats)
	for _, root := range sourceRoots {
		if err := countPackages(root, byPkg); err != nil {
			return err
		}
	}

	pkgs := make([]pkgStats, 0, len(byPkg))
	var prod, test int
	for _, s := range byPkg {
		pkgs = append(pkgs, *s)
		prod += s.Prod
		test += s.Test
	}
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Package < pkgs[j].Package })

	docs := make(map[string]int, len(docFiles))
	for _, name := range docFiles {
		data, err := os.ReadFile(name)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return err
		}
		docs[name] = len(strings.Fields(string(data)))
	}

	record := struct {
		Packages []pkgStats     `json:"packages"`
		Prod     int            `json:"go_loc_prod"`
		Test     int            `json:"go_loc_test"`
		Total    int            `json:"go_loc"`
		Docs     map[string]int `json:"doc_wc"`
	}{pkgs, prod, test, prod + test, docs}

	line, err := json.Marshal(record)
	if err != nil {
		return err
	}
	fmt.Println(string(line))
	return nil
}

// countPackages adds the lines of every .go file under root to the entry of
// its directory. A missing root counts as empty.
func countPackages(root string, byPkg map[string]*pkgStats) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".go" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		n := bytes.Count(data, []byte("\n"))
		dir := filepath.ToSlash(filepath.Dir(path))
		s, ok := byPkg[dir]
		if !ok {
			s = &pkgStats{Package: dir}
			byPkg[dir] = s
		}
		if strings.HasSuffix(path, "_test.go") {
			s.Test += n
		} else {
			s.Prod += n
		}
		return nil
	})
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
