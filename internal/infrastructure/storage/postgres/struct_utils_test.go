package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fuelops/internal/core/entity"
	"fuelops/internal/core/id"
)

type mockCatalog struct {
	entity.Catalog
	entity.Ownership
	Capacity string `db:"capacity"`
	Ignored  string `db:"-"`
	NoTag    string
}

func TestExtractDBColumns_Embedded(t *testing.T) {
	cols := ExtractDBColumns[mockCatalog]()

	assert.Equal(t, []string{
		"id", "version",
		"code", "name", "legacy_code_key", "active",
		"owner_user_id", "credential_group_id", "organization_name",
		"capacity",
	}, cols)
}

func TestStructToMap_Embedded(t *testing.T) {
	legacy := id.New()
	c := &mockCatalog{
		Catalog:   entity.NewCatalog("T-1", "Main"),
		Ownership: entity.Ownership{OwnerUserID: "u-1"},
		Capacity:  "1000",
	}
	c.LegacyCodeKey = &legacy
	c.Version = 5

	m := StructToMap(c)

	assert.Equal(t, c.ID, m["id"])
	assert.Equal(t, 5, m["version"])
	assert.Equal(t, "T-1", m["code"])
	assert.Equal(t, &legacy, m["legacy_code_key"])
	assert.Equal(t, "u-1", m["owner_user_id"])
	assert.Equal(t, "1000", m["capacity"])
	assert.NotContains(t, m, "-")
	assert.Equal(t, true, m["active"])
	assert.Len(t, m, 10)
}

func TestStructToMap_NonStruct(t *testing.T) {
	assert.Nil(t, StructToMap(42))
}

func TestWithout(t *testing.T) {
	assert.Equal(t, []string{"b", "d"}, Without([]string{"a", "b", "c", "d"}, "a", "c"))
}
