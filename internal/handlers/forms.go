// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// LoginForm is the body of POST /login.
type LoginForm struct {
	Email      string `form:"email"      validate:"required"`
	Password   string `form:"password"   validate:"required"`
	RedirectTo string `form:"redirectTo"`
	Remember   string `form:"remember"`
}

// RegisterForm is the body of POST /register.
type RegisterForm struct {
	Email      string `form:"email"      validate:"required,email,max=255"`
	Password   string `form:"password"   validate:"required,min=8,max=72"`
	Name       string `form:"name"       validate:"max=100"`
	RedirectTo string `form:"redirectTo"`
}

// ForgotPasswordForm is the body of POST /forgot-password.
type ForgotPasswordForm struct {
	Email string `form:"email"`
}

// ResetPasswordForm is the body of POST /reset-password/:token.
type ResetPasswordForm struct {
	Password string `form:"password"`
}

// PostForm is the body of POST /posts/new.
type PostForm struct {
	Title     string `form:"title"     validate:"required,max=200"`
	Content   string `form:"content"`
	Published string `form:"published"`
}

// messages maps "Field.tag" of a failed rule to the message shown to the client.
var messages = map[string]string{
	"Email.required":    "Email and password are required",
	"Password.required": "Email and password are required",
	"Email.email":       "Invalid email address",
	"Email.max":         "Email is too long",
	"Password.min":      "Password must be at least 8 characters",
	"Password.max":      "Password must be at most 72 characters",
	"Name.max":          "Name is too long",
	"Title.required":    "Title is required",
	"Title.max":         "Title is too long",
}

// Validator adapts go-playground/validator to echo.Validator.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates the validator registered on the Echo instance.
func NewValidator() *Validator {
	return &Validator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate checks struct tags and returns a 400 with the first failure's message.
func (v *Validator) Validate(i any) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if msg, ok := messages[fe.StructField()+"."+fe.Tag()]; ok {
			return echo.NewHTTPError(http.StatusBadRequest, msg)
		}
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid "+strings.ToLower(fe.StructField()))
	}
	return err
}

// bindForm binds the request form into dst and validates it.
func bindForm(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid form data").SetInternal(err)
	}
	return c.Validate(dst)
}

// safeRedirect returns target if it is a local path, otherwise /dashboard.
func safeRedirect(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/dashboard"
	}
	return target
}

func checked(v string) bool {
	return v == "on"
}
