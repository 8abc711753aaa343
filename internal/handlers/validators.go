package handlers

import (
	"regexp"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var assetCodePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]{1,15}$`)

var registerValidatorsOnce sync.Once

// validateAssetCode backs the "assetcode" binding tag: a letter followed by 1-15 letters or digits.
func validateAssetCode(fl validator.FieldLevel) bool {
	return assetCodePattern.MatchString(fl.Field().String())
}

// registerValidators installs the custom binding tags on gin's validator engine.
func registerValidators() {
	registerValidatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		if err := v.RegisterValidation("assetcode", validateAssetCode); err != nil {
			panic(err)
		}
	})
}
