package menu

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/maisgestor/portal/internal/model"
)

//go:embed defaults.yaml
var defaultsYAML []byte

var defaultItems []model.MenuItem

func init() {
	var f struct {
		Items []model.MenuItem `yaml:"items"`
	}
	if err := yaml.Unmarshal(defaultsYAML, &f); err != nil {
		panic(fmt.Sprintf("menu: defaults.yaml の読み込みに失敗しました: %v", err))
	}
	defaultItems = f.Items
}

// DefaultMenuItems は初期メニュー構成のコピーを返す。
func DefaultMenuItems() []model.MenuItem {
	return model.CloneMenuItems(defaultItems)
}
