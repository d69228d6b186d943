package validator

import (
	"strings"
	"sync"

	"coinpilot/pkg/logger"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	zhTranslations "github.com/go-playground/validator/v10/translations/zh"
)

var (
	once  sync.Once
	Trans ut.Translator
)

// LazyInitGinValidator 替换gin默认的参数校验器翻译，支持zh/en
func LazyInitGinValidator(language string) {
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			logger.Warnf("gin validator engine is not *validator.Validate")
			return
		}

		zhT := zh.New()
		enT := en.New()
		uni := ut.New(enT, zhT, enT)

		locale := strings.ToLower(language)
		Trans, ok = uni.GetTranslator(locale)
		if !ok {
			Trans, _ = uni.GetTranslator("en")
		}

		var err error
		switch locale {
		case "zh":
			err = zhTranslations.RegisterDefaultTranslations(v, Trans)
		default:
			err = enTranslations.RegisterDefaultTranslations(v, Trans)
		}
		if err != nil {
			logger.Errorf("注册validator翻译失败: %v", err)
		}
	})
}

// Translate 将校验错误翻译为可读信息
func Translate(err error) string {
	if err == nil {
		return ""
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok || Trans == nil {
		return err.Error()
	}
	var msgs []string
	for _, e := range errs {
		msgs = append(msgs, e.Translate(Trans))
	}
	return strings.Join(msgs, "; ")
}
