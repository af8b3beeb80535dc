// Package validation validates command arguments and configuration structs
// with go-playground/validator and reports failures as *errors.AppError.
package validation
