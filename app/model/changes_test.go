package model

import (
	"encoding/json"
	"testing"
)

func TestSplit(t *testing.T) {
	const watermark = 100

	rows := []UserFeedItemRead{
		{GUID: "new", CreatedAt: 150, UpdatedAt: 150},
		{GUID: "changed", CreatedAt: 50, UpdatedAt: 150},
		{GUID: "tombstoned", CreatedAt: 50, UpdatedAt: 150, Deleted: true},
		{GUID: "created-then-deleted", CreatedAt: 120, UpdatedAt: 130, Deleted: true},
		{GUID: "stale", CreatedAt: 10, UpdatedAt: 90},
		{GUID: "stale-tombstone", CreatedAt: 10, UpdatedAt: 90, Deleted: true},
	}

	split := Split(rows, watermark)

	assertGUIDs(t, "created", split.Created, "new")
	assertGUIDs(t, "updated", split.Updated, "changed")
	assertGUIDs(t, "deleted", split.Deleted, "tombstoned", "created-then-deleted")
}

func TestSplitAtZeroWatermark(t *testing.T) {
	rows := []Feed{
		{FeedID: "a", CreatedAt: 1, UpdatedAt: 5},
		{FeedID: "b", CreatedAt: 1, UpdatedAt: 5, Deleted: true},
	}

	split := Split(rows, 0)
	if len(split.Created) != 1 || split.Created[0].FeedID != "a" {
		t.Errorf("Expected feed a as created, got %+v", split.Created)
	}
	if len(split.Deleted) != 1 || split.Deleted[0].FeedID != "b" {
		t.Errorf("Expected feed b as deleted, got %+v", split.Deleted)
	}
	if len(split.Updated) != 0 {
		t.Errorf("Expected no updated rows, got %d", len(split.Updated))
	}
}

func TestChangesObjectWireShape(t *testing.T) {
	data, err := json.Marshal(NewChangesObject())
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]map[string][]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}

	for _, kind := range EntityKinds {
		specs, ok := decoded[string(kind)]
		if !ok {
			t.Fatalf("Expected %s section in %s", kind, data)
		}
		for _, section := range []string{"created", "updated", "deleted"} {
			if specs[section] == nil {
				t.Errorf("Expected %s.%s to be an empty array, got null", kind, section)
			}
		}
	}
}

func TestChangesObjectIsEmpty(t *testing.T) {
	changes := NewChangesObject()
	if !changes.IsEmpty() {
		t.Error("Expected new changes object to be empty")
	}

	changes.FeedItemReads.Deleted = append(changes.FeedItemReads.Deleted, UserFeedItemRead{GUID: "g"})
	if changes.IsEmpty() {
		t.Error("Expected changes object with a read tombstone to be non-empty")
	}
	if changes.Count()[KindFeedItemRead] != 1 {
		t.Errorf("Expected 1 read change, got %d", changes.Count()[KindFeedItemRead])
	}
}

func TestChangeSpecsAll(t *testing.T) {
	specs := ChangeSpecs[UserSubscription]{
		Created: []UserSubscription{{URL: "a"}},
		Updated: []UserSubscription{{URL: "b"}},
		Deleted: []UserSubscription{{URL: "c", Deleted: true}},
	}

	all := specs.All()
	if len(all) != 3 || all[0].URL != "a" || all[2].URL != "c" {
		t.Errorf("Unexpected flatten result: %+v", all)
	}
}

func TestChangeSpecsMerge(t *testing.T) {
	a := ChangeSpecs[Feed]{Created: []Feed{{FeedID: "a"}}}.Normalize()
	b := ChangeSpecs[Feed]{Created: []Feed{{FeedID: "b"}}, Deleted: []Feed{{FeedID: "c", Deleted: true}}}

	merged := a.Merge(b)
	if len(merged.Created) != 2 || merged.Created[1].FeedID != "b" {
		t.Errorf("Unexpected created rows: %+v", merged.Created)
	}
	if len(merged.Updated) != 0 || len(merged.Deleted) != 1 {
		t.Errorf("Unexpected merge result: %+v", merged)
	}
}

func assertGUIDs(t *testing.T, section string, rows []UserFeedItemRead, want ...string) {
	t.Helper()
	if len(rows) != len(want) {
		t.Fatalf("Expected %d %s rows, got %d: %+v", len(want), section, len(rows), rows)
	}
	for i, guid := range want {
		if rows[i].GUID != guid {
			t.Errorf("Expected %s[%d] = %s, got %s", section, i, guid, rows[i].GUID)
		}
	}
}
