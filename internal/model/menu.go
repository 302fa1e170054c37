// Package model はドメインモデルを定義する。
package model

import "time"

// MenuItem はサイトのトップレベルのナビゲーション項目を表す。
// Orderは兄弟要素内で1始まりの連番として扱う。
type MenuItem struct {
	ID         string        `json:"id" yaml:"id"`
	Name       string        `json:"name" yaml:"name"`
	Href       string        `json:"href" yaml:"href"`
	IsActive   bool          `json:"isActive" yaml:"isActive"`
	Order      int           `json:"order" yaml:"order"`
	HasSubmenu bool          `json:"hasSubmenu" yaml:"hasSubmenu"`
	Submenu    []SubMenuItem `json:"submenu,omitempty" yaml:"submenu,omitempty"`
}

// SubMenuItem はMenuItem配下のサブメニュー項目を表す。
// Orderは親ごとに独立した連番。
type SubMenuItem struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Href     string `json:"href" yaml:"href"`
	IsActive bool   `json:"isActive" yaml:"isActive"`
	Order    int    `json:"order" yaml:"order"`
}

// MenuConfiguration はPersistentCacheに保存するメニューのスナップショット。
type MenuConfiguration struct {
	Items       []MenuItem `json:"items"`
	LastUpdated time.Time  `json:"lastUpdated"`
}

// MenuItemInput はメニュー項目の作成入力。
// nilのフィールドはデフォルト値で補完される。hasSubmenuはサブメニューの件数から決まるため入力に含めない。
type MenuItemInput struct {
	Name     string `json:"name"`
	Href     string `json:"href"`
	Order    *int   `json:"order,omitempty"`
	IsActive *bool  `json:"isActive,omitempty"`
}

// SubMenuItemInput はサブメニュー項目の作成入力。
type SubMenuItemInput struct {
	Name     string `json:"name"`
	Href     string `json:"href"`
	Order    *int   `json:"order,omitempty"`
	IsActive *bool  `json:"isActive,omitempty"`
}

// MenuItemPatch はメニュー項目の部分更新。nilのフィールドは変更しない。
// HasSubmenuはサブメニュー操作がRemoteStoreの行を揃えるためにだけ使い、JSONからは受け付けない。
type MenuItemPatch struct {
	Name       *string `json:"name,omitempty"`
	Href       *string `json:"href,omitempty"`
	IsActive   *bool   `json:"isActive,omitempty"`
	Order      *int    `json:"order,omitempty"`
	HasSubmenu *bool   `json:"-"`
}

// IsEmpty はパッチに利用者が変更できるフィールドが1つも無い場合にtrueを返す。
func (p MenuItemPatch) IsEmpty() bool {
	return p.Name == nil && p.Href == nil && p.IsActive == nil && p.Order == nil
}

// Apply はパッチをMenuItemに適用した新しい値を返す。
func (p MenuItemPatch) Apply(item MenuItem) MenuItem {
	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.Href != nil {
		item.Href = *p.Href
	}
	if p.IsActive != nil {
		item.IsActive = *p.IsActive
	}
	if p.Order != nil {
		item.Order = *p.Order
	}
	item.HasSubmenu = len(item.Submenu) > 0
	return item
}

// SubMenuItemPatch はサブメニュー項目の部分更新。
type SubMenuItemPatch struct {
	Name     *string `json:"name,omitempty"`
	Href     *string `json:"href,omitempty"`
	IsActive *bool   `json:"isActive,omitempty"`
	Order    *int    `json:"order,omitempty"`
}

// IsEmpty はパッチに変更対象のフィールドが1つも無い場合にtrueを返す。
func (p SubMenuItemPatch) IsEmpty() bool {
	return p.Name == nil && p.Href == nil && p.IsActive == nil && p.Order == nil
}

// Apply はパッチをSubMenuItemに適用した新しい値を返す。
func (p SubMenuItemPatch) Apply(sub SubMenuItem) SubMenuItem {
	if p.Name != nil {
		sub.Name = *p.Name
	}
	if p.Href != nil {
		sub.Href = *p.Href
	}
	if p.IsActive != nil {
		sub.IsActive = *p.IsActive
	}
	if p.Order != nil {
		sub.Order = *p.Order
	}
	return sub
}

// CloneMenuItems はサブメニューを含めてメニュー項目のディープコピーを返す。
func CloneMenuItems(items []MenuItem) []MenuItem {
	if items == nil {
		return nil
	}
	out := make([]MenuItem, len(items))
	for i, item := range items {
		out[i] = item
		if item.Submenu != nil {
			out[i].Submenu = append([]SubMenuItem(nil), item.Submenu...)
		}
	}
	return out
}
