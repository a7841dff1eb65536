// Package config 提供引擎的统一配置：结构定义、默认值、
// YAML 加载与环境变量覆盖，以及带回滚能力的运行时热重载。
package config
