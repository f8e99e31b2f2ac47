// Package i18n 提供错误消息的多语言翻译
package i18n

import (
	"strings"
	"sync"

	"github.com/go-playground/locales/en_US"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/veerhq/veer/internal/logger"
)

// 支持的语言
const (
	LangZhCN = "zh-CN"
	LangEnUS = "en-US"
)

var (
	instance *I18n
	once     sync.Once

	translations = map[string]map[string]string{
		LangEnUS: {
			"success":                "Success",
			"internal_server_error":  "Internal Server Error",
			"invalid_params":         "Invalid Parameters",
			"unauthorized":           "Unauthorized",
			"not_found":              "Resource Not Found",
			"conflict":               "Resource Conflict",
			"unsupported_media_type": "Unsupported Media Type",
			"service_unavailable":    "Service Unavailable",

			"record_not_found":      "Record Not Found",
			"record_already_exists": "Record Already Exists",
			"invalid_color":         "Invalid Color",
			"invalid_unit":          "Invalid Unit Conversion",

			"unknown_action":       "Unknown Action",
			"unsupported_platform": "Action Not Supported On This Platform",
			"unknown_app":          "Unknown Application",
			"command_failed":       "Command Failed",
			"invalid_process":      "Invalid Process",

			"upstream_failed": "Upstream Request Failed",
			"no_provider":     "No Provider Configured",

			"backup_config_not_found": "Backup Target Not Found",
			"backup_failed":           "Backup Failed",
			"restore_failed":          "Restore Failed",
			"provider_not_supported":  "Storage Provider Not Supported",

			"database_query": "Database Query Error",
			"database_write": "Database Write Error",

			"unknown_error": "Unknown Error",
		},
		LangZhCN: {
			"success":                "成功",
			"internal_server_error":  "服务器内部错误",
			"invalid_params":         "参数错误",
			"unauthorized":           "未授权",
			"not_found":              "资源未找到",
			"conflict":               "资源冲突",
			"unsupported_media_type": "不支持的请求格式",
			"service_unavailable":    "服务不可用",

			"record_not_found":      "记录未找到",
			"record_already_exists": "记录已存在",
			"invalid_color":         "颜色格式无效",
			"invalid_unit":          "单位换算无效",

			"unknown_action":       "未知操作",
			"unsupported_platform": "当前平台不支持该操作",
			"unknown_app":          "未知应用",
			"command_failed":       "命令执行失败",
			"invalid_process":      "进程参数无效",

			"upstream_failed": "上游请求失败",
			"no_provider":     "未配置可用提供商",

			"backup_config_not_found": "备份目标未找到",
			"backup_failed":           "备份失败",
			"restore_failed":          "恢复失败",
			"provider_not_supported":  "不支持的存储提供商",

			"database_query": "数据库查询错误",
			"database_write": "数据库写入错误",

			"unknown_error": "未知错误",
		},
	}
)

// I18n 国际化管理器
type I18n struct {
	translators map[string]ut.Translator
	defaultLang string
}

// GetInstance 获取I18n单例
func GetInstance() *I18n {
	once.Do(func() {
		instance = &I18n{
			translators: make(map[string]ut.Translator),
			defaultLang: LangEnUS,
		}
		instance.initTranslators()
	})
	return instance
}

func (i *I18n) initTranslators() {
	enUS := en_US.New()
	uni := ut.New(enUS, enUS, zh.New())

	langMappings := map[string]string{
		LangEnUS: "en_US",
		LangZhCN: "zh",
	}
	for ourLang, localeLang := range langMappings {
		trans, found := uni.GetTranslator(localeLang)
		if !found {
			logger.Errorf("初始化翻译器失败: %s (locale: %s)", ourLang, localeLang)
			continue
		}
		i.translators[ourLang] = trans
	}
}

// Translate 根据键和语言获取翻译，缺失时回退到默认语言，再回退到键本身
func (i *I18n) Translate(key, lang string) string {
	lang = i.Resolve(lang)
	if translation, found := translations[lang][key]; found {
		return translation
	}
	if translation, found := translations[i.defaultLang][key]; found {
		return translation
	}
	return key
}

// Resolve 把 Accept-Language 之类的输入归一为支持的语言
// 例如 "zh-CN,zh;q=0.9" -> zh-CN, "en" -> en-US
func (i *I18n) Resolve(lang string) string {
	lang = strings.TrimSpace(lang)
	if idx := strings.IndexAny(lang, ",;"); idx >= 0 {
		lang = lang[:idx]
	}
	lower := strings.ToLower(lang)
	switch {
	case strings.HasPrefix(lower, "zh"):
		lang = LangZhCN
	case strings.HasPrefix(lower, "en"):
		lang = LangEnUS
	}
	if _, ok := i.translators[lang]; !ok {
		return i.defaultLang
	}
	return lang
}

// SetDefaultLanguage 设置默认语言
func (i *I18n) SetDefaultLanguage(lang string) {
	if _, ok := translations[lang]; ok {
		i.defaultLang = lang
	}
}

// GetDefaultLanguage 获取默认语言
func (i *I18n) GetDefaultLanguage() string {
	return i.defaultLang
}

// GetSupportedLanguages 获取支持的语言列表
func (i *I18n) GetSupportedLanguages() []string {
	langs := make([]string, 0, len(i.translators))
	for lang := range i.translators {
		langs = append(langs, lang)
	}
	return langs
}
