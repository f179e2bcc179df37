package rerank

import (
	"context"
	"testing"

	"github.com/rushteam/bookrec/core"
)

func authorItem(id, author string) *core.Item {
	it := core.NewItem(id)
	it.Meta[core.MetaBook] = &core.Book{ID: id, Author: author, IsRomantasy: true}
	return it
}

func itemIDs(items []*core.Item) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	return ids
}

func TestAuthorDiversity_CapsPerAuthor(t *testing.T) {
	node := &AuthorDiversity{Limit: 2}
	items := []*core.Item{
		authorItem("b1", "Sarah J. Maas"),
		authorItem("b2", "Sarah J. Maas"),
		authorItem("b3", "Rebecca Yarros"),
		authorItem("b4", "Sarah J. Maas"),
		authorItem("b5", "Rebecca Yarros"),
	}

	out, err := node.Process(context.Background(), nil, items)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	want := []string{"b1", "b2", "b3", "b5"}
	got := itemIDs(out)
	if len(got) != len(want) {
		t.Fatalf("Process() kept %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Process()[%d] = %s, want %s (stable order)", i, got[i], want[i])
		}
	}
}

func TestAuthorDiversity_CaseInsensitiveIdentity(t *testing.T) {
	node := &AuthorDiversity{Limit: 1}
	items := []*core.Item{
		authorItem("b1", "J.R. Ward"),
		authorItem("b2", "j.r. ward"),
	}

	out, err := node.Process(context.Background(), nil, items)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(out) != 1 || out[0].ID != "b1" {
		t.Errorf("Process() = %v, want only b1", itemIDs(out))
	}
}

func TestAuthorDiversity_UnknownAuthorUnconstrained(t *testing.T) {
	node := &AuthorDiversity{Limit: 1}
	items := []*core.Item{
		authorItem("b1", ""),
		authorItem("b2", ""),
		core.NewItem("b3"), // 无书目元数据
	}

	out, err := node.Process(context.Background(), nil, items)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(out) != 3 {
		t.Errorf("Process() kept %d items, want all 3", len(out))
	}
}

func TestAuthorDiversity_LimitFromConfig(t *testing.T) {
	node := &AuthorDiversity{Config: &core.StaticEngineConfig{AuthorDiverse: 1}}
	items := []*core.Item{
		authorItem("b1", "Holly Black"),
		authorItem("b2", "Holly Black"),
	}

	out, err := node.Process(context.Background(), nil, items)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(out) != 1 {
		t.Errorf("Process() kept %d items, want 1 (config limit)", len(out))
	}
}

func TestAuthorDiversity_DefaultLimit(t *testing.T) {
	node := &AuthorDiversity{}
	items := make([]*core.Item, 0, 5)
	for _, id := range []string{"b1", "b2", "b3", "b4", "b5"} {
		items = append(items, authorItem(id, "Jennifer L. Armentrout"))
	}

	out, err := node.Process(context.Background(), nil, items)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(out) != 3 {
		t.Errorf("Process() kept %d items, want default limit 3", len(out))
	}
}
