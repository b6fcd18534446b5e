// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Fields tagged `notblank` must contain something besides whitespace.
		_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			field := fl.Field()
			if field.Kind() != reflect.String {
				return true
			}
			return !IsBlank(field.String())
		})
	})
	return validate
}

// ValidateRequest checks a request struct against its `validate` tags.
// Failures come back as a KindInvalidRequest error naming the missing fields.
func ValidateRequest(req any) error {
	err := structValidator().Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return NewInvalidRequest(err.Error())
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	cErr := NewInvalidRequest("missing or invalid fields: " + strings.Join(fields, ", "))
	cErr.Details = map[string]any{"fields": fields}
	return cErr
}

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - WorkspaceID must not be empty
//   - Name must not be empty
//   - Content must contain visible text
//
// NOT validated:
//   - ID (0 is valid until the store assigns one from its sequence)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.WorkspaceID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrMissingWorkspace)
	}

	if IsBlank(doc.Name) {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyName)
	}

	if IsBlank(doc.Content) {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, NewNoExtractableText("document has no text content"))
	}

	return nil
}

// ValidateWorkspace validates a Workspace according to domain rules.
func ValidateWorkspace(ws *Workspace) error {
	if ws == nil {
		return fmt.Errorf("%w: workspace is nil", ErrInvalidWorkspace)
	}

	if IsBlank(ws.Name) {
		return fmt.Errorf("%w: %w", ErrInvalidWorkspace, ErrEmptyName)
	}

	return nil
}
