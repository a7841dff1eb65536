package persona

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// profileFile 是画像档案文件的顶层结构。
type profileFile struct {
	Profiles []*Profile `yaml:"profiles"`
}

// LoadFile 返回一个注册表：先装入内置档案，再叠加文件中声明的档案，
// 同名档案以文件为准。
func LoadFile(path string, logger *zap.Logger) (*Registry, error) {
	r := DefaultRegistry(logger)
	if err := r.LoadFile(path); err != nil {
		return nil, err
	}
	return r, nil
}

// LoadFile 从 YAML 文件读取画像档案并逐个注册。任何一个档案校验失败
// 都会中止加载并返回错误，已注册的档案保持生效。
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read persona file: %w", err)
	}

	var doc profileFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse persona file %s: %w", path, err)
	}
	if len(doc.Profiles) == 0 {
		return fmt.Errorf("persona file %s declares no profiles", path)
	}

	for _, p := range doc.Profiles {
		if err := r.Register(p); err != nil {
			return fmt.Errorf("invalid profile %q in %s: %w", p.Name, path, err)
		}
	}
	r.logger.Info("persona profiles loaded from file",
		zap.String("path", path),
		zap.Int("count", len(doc.Profiles)))
	return nil
}
