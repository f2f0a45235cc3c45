package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nathoo/vnplayer/story"
	lua "github.com/yuin/gopher-lua"
)

// collector accumulates Lua definitions during file execution.
type collector struct {
	story      *lua.LTable
	intro      *string
	end        *string
	characters []rawCharacter
	fragments  []rawFragment
	order      int
}

func (c *collector) nextSourceOrder() int {
	c.order++
	return c.order
}

// Load reads a story from a .lua file, or from every .lua file in a
// directory (story.lua first, rest alphabetical), compiles it and validates
// it. The Lua VM is discarded after loading.
func Load(path string) (*story.Story, error) {
	st, _, err := LoadWithWarnings(path)
	return st, err
}

// LoadWithWarnings is Load, also returning non-fatal validation warnings.
func LoadWithWarnings(path string) (*story.Story, []string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading story %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	files := []string{path}
	if info.IsDir() {
		dir = path
		files, err = luaFiles(path)
		if err != nil {
			return nil, nil, err
		}
	}

	// Create sandboxed VM.
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	openSafeLibs(L)
	sandbox(L)

	coll := &collector{}
	registerAPI(L, coll)

	for _, f := range files {
		if err := L.DoFile(f); err != nil {
			return nil, nil, fmt.Errorf("executing %s: %w", filepath.Base(f), err)
		}
	}

	st, err := compile(coll, dir)
	if err != nil {
		return nil, nil, fmt.Errorf("compiling story: %w", err)
	}
	warnings, err := validate(st, coll)
	if err != nil {
		return nil, warnings, err
	}
	return st, warnings, nil
}

// Resolve picks the story a binary plays: the Lua story at path, or the
// built-in story when path is empty. A non-empty introFile replaces the
// intro markup.
func Resolve(path, introFile string) (*story.Story, []string, error) {
	st := story.Default()
	var warnings []string
	if path != "" {
		var err error
		st, warnings, err = LoadWithWarnings(path)
		if err != nil {
			return nil, warnings, err
		}
	}
	if introFile != "" {
		intro, err := story.LoadIntro(introFile)
		if err != nil {
			return nil, warnings, err
		}
		st.Intro = intro
	}
	return st, warnings, nil
}

func luaFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading story directory %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".lua") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no .lua files found in %s", dir)
	}
	sort.Slice(names, func(i, j int) bool {
		if names[i] == "story.lua" {
			return true
		}
		if names[j] == "story.lua" {
			return false
		}
		return names[i] < names[j]
	})
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
	}
	return paths, nil
}

// openSafeLibs opens only the safe subset of Lua standard libraries.
func openSafeLibs(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// sandbox removes dangerous globals and functions.
func sandbox(L *lua.LState) {
	dangerous := []string{
		"dofile", "loadfile", "load", "loadstring",
		"rawset", "rawget", "rawequal",
		"collectgarbage", "require", "module",
	}
	for _, name := range dangerous {
		L.SetGlobal(name, lua.LNil)
	}

	// Stories must load the same way every time.
	if mathTbl, ok := L.GetGlobal("math").(*lua.LTable); ok {
		mathTbl.RawSetString("random", lua.LNil)
		mathTbl.RawSetString("randomseed", lua.LNil)
	}
}
