package app

import (
	"testing"

	"totalistic-ca/internal/core"
)

func lifeTable(t *testing.T) *core.Table {
	t.Helper()
	table, err := core.Rules()["life"](nil)
	if err != nil {
		t.Fatal(err)
	}
	return table
}
