package loader

import (
	lua "github.com/yuin/gopher-lua"
)

// registerAPI registers the story constructors as globals.
func registerAPI(L *lua.LState, coll *collector) {
	// Story { title = "...", hub_prompt = "...", end_label = "...", intro_file = "..." }
	L.SetGlobal("Story", L.NewFunction(func(L *lua.LState) int {
		coll.story = L.CheckTable(1)
		return 0
	}))

	// Intro [[ markup ]]
	L.SetGlobal("Intro", L.NewFunction(func(L *lua.LState) int {
		s := L.CheckString(1)
		coll.intro = &s
		return 0
	}))

	// End [[ markup ]]
	L.SetGlobal("End", L.NewFunction(func(L *lua.LState) int {
		s := L.CheckString(1)
		coll.end = &s
		return 0
	}))

	// Character "id" { name = "...", hub_label = "...", ... }, curried.
	L.SetGlobal("Character", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.characters = append(coll.characters, rawCharacter{id: id, table: tbl, order: coll.nextSourceOrder()})
			return 0
		}))
		return 1
	}))

	// Fragment "id" "L1" [[ markup ]], curried twice.
	L.SetGlobal("Fragment", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			stage := L.CheckString(1)
			L.Push(L.NewFunction(func(L *lua.LState) int {
				text := L.CheckString(1)
				coll.fragments = append(coll.fragments, rawFragment{character: id, stage: stage, text: text, order: coll.nextSourceOrder()})
				return 0
			}))
			return 1
		}))
		return 1
	}))
}
