// Package validation 封装 go-playground/validator，统一 HTTP 与实时会话两条入口的参数校验
// 校验失败返回 errorx.CodeInvalidParam，消息为翻译后的可读原因
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"channel_chat_server/internal/dto/request"
	"channel_chat_server/pkg/errorx"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
)

// 自定义规则名
const (
	tagNotBlank       = "notblank"
	tagContentOrImage = "content_or_image"
)

// Validator 带翻译器的校验器，同时实现 gin 的 binding.StructValidator
type Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

// New 创建校验器，locale 为 "zh" 或 "en"，未知语言回退到英文
func New(locale string) (*Validator, error) {
	v := validator.New()
	v.SetTagName("binding")

	// 错误信息使用 json 字段名
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation(tagNotBlank, validators.NotBlank); err != nil {
		return nil, fmt.Errorf("register %s: %w", tagNotBlank, err)
	}
	v.RegisterStructValidation(sendMessageStructLevel, request.SendMessageRequest{})

	enT := en.New()
	uni := ut.New(enT, zh.New(), enT)
	trans, ok := uni.GetTranslator(locale)
	if !ok {
		trans, _ = uni.GetTranslator("en")
		locale = "en"
	}

	var err error
	switch locale {
	case "zh":
		err = zh_translations.RegisterDefaultTranslations(v, trans)
	default:
		err = en_translations.RegisterDefaultTranslations(v, trans)
	}
	if err != nil {
		return nil, fmt.Errorf("register default translations: %w", err)
	}
	if err := registerCustomTranslations(v, trans, locale); err != nil {
		return nil, err
	}

	return &Validator{validate: v, trans: trans}, nil
}

// sendMessageStructLevel 内容去除空白后为空且没有图片时拒绝
func sendMessageStructLevel(sl validator.StructLevel) {
	req := sl.Current().Interface().(request.SendMessageRequest)
	if strings.TrimSpace(req.Content) == "" && strings.TrimSpace(req.ImageUrl) == "" {
		sl.ReportError(req.Content, "content", "Content", tagContentOrImage, "")
	}
}

func registerCustomTranslations(v *validator.Validate, trans ut.Translator, locale string) error {
	messages := map[string]string{
		tagNotBlank:       "{0} cannot be blank",
		tagContentOrImage: "{0} or imageUrl is required",
	}
	if locale == "zh" {
		messages = map[string]string{
			tagNotBlank:       "{0}不能为空白",
			tagContentOrImage: "{0}和imageUrl不能同时为空",
		}
	}
	for tag, text := range messages {
		err := v.RegisterTranslation(tag, trans,
			func(ut ut.Translator) error {
				return ut.Add(tag, text, true)
			},
			func(ut ut.Translator, fe validator.FieldError) string {
				t, _ := ut.T(fe.Tag(), fe.Field())
				return t
			},
		)
		if err != nil {
			return fmt.Errorf("register translation %s: %w", tag, err)
		}
	}
	return nil
}

// Struct 校验结构体，失败时返回 CodeInvalidParam
func (v *Validator) Struct(obj any) error {
	return v.translate(v.validate.Struct(obj))
}

// ValidateStruct 实现 binding.StructValidator，非结构体参数直接放行
func (v *Validator) ValidateStruct(obj any) error {
	if obj == nil {
		return nil
	}
	value := reflect.ValueOf(obj)
	for value.Kind() == reflect.Ptr {
		if value.IsNil() {
			return nil
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return nil
	}
	return v.Struct(obj)
}

// Engine 实现 binding.StructValidator
func (v *Validator) Engine() any {
	return v.validate
}

// Install 替换 gin 的默认校验器，使 ShouldBind 系列方法共用同一套规则与翻译
func (v *Validator) Install() {
	binding.Validator = v
}

// translate 将 validator 错误转换为 CodeInvalidParam，保留字段顺序
func (v *Validator) translate(err error) error {
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return errorx.Wrap(err, errorx.CodeInvalidParam, errorx.ErrInvalidParam.Msg)
	}
	msgs := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		msgs = append(msgs, fe.Translate(v.trans))
	}
	return errorx.Wrap(err, errorx.CodeInvalidParam, strings.Join(msgs, "; "))
}
