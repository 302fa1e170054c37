package menu

import (
	"cmp"
	"slices"

	"github.com/maisgestor/portal/internal/model"
)

func compareMenuOrder(a, b model.MenuItem) int {
	return cmp.Compare(a.Order, b.Order)
}

func compareSubMenuOrder(a, b model.SubMenuItem) int {
	return cmp.Compare(a.Order, b.Order)
}

// sortByOrder はorder昇順に並べた新しいスライスを返す。同順位は元の並びを保つ。
func sortByOrder(items []model.MenuItem) []model.MenuItem {
	sorted := model.CloneMenuItems(items)
	slices.SortStableFunc(sorted, compareMenuOrder)
	return sorted
}

func sortSubmenu(subs []model.SubMenuItem) {
	slices.SortStableFunc(subs, compareSubMenuOrder)
}

// moveItem はidの項目を1つ前(up)または後ろに移動し、全項目のorderを1..Nで振り直す。
// 既に端にある場合はmoved=falseを返す。idが見つからない場合はfound=falseを返す。
func moveItem(items []model.MenuItem, id string, up bool) (result []model.MenuItem, moved, found bool) {
	sorted := sortByOrder(items)

	idx := slices.IndexFunc(sorted, func(it model.MenuItem) bool { return it.ID == id })
	if idx < 0 {
		return nil, false, false
	}

	target := idx + 1
	if up {
		target = idx - 1
	}
	if target < 0 || target >= len(sorted) {
		return nil, false, true
	}

	item := sorted[idx]
	sorted = slices.Delete(sorted, idx, idx+1)
	sorted = slices.Insert(sorted, target, item)
	renumber(sorted)

	return sorted, true, true
}

// renumber は並び順どおりにorder = 位置+1 を設定する。
func renumber(items []model.MenuItem) {
	for i := range items {
		items[i].Order = i + 1
	}
}

// nextOrder は末尾に追加する項目のorderを返す。
func nextOrder(items []model.MenuItem) int {
	highest := 0
	for _, it := range items {
		highest = max(highest, it.Order)
	}
	return highest + 1
}

func nextSubOrder(subs []model.SubMenuItem) int {
	highest := 0
	for _, s := range subs {
		highest = max(highest, s.Order)
	}
	return highest + 1
}

// activeView はアクティブな項目のみをorder順に並べた新しいスライスを返す。
// サブメニューも同様に絞り込む。引数は変更しない。
func activeView(items []model.MenuItem) []model.MenuItem {
	out := make([]model.MenuItem, 0, len(items))
	for _, it := range items {
		if !it.IsActive {
			continue
		}
		if it.Submenu != nil {
			subs := make([]model.SubMenuItem, 0, len(it.Submenu))
			for _, s := range it.Submenu {
				if s.IsActive {
					subs = append(subs, s)
				}
			}
			sortSubmenu(subs)
			it.Submenu = subs
		}
		out = append(out, it)
	}
	slices.SortStableFunc(out, compareMenuOrder)
	return out
}
