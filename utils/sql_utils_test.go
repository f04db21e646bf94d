package utils

import (
	"testing"
)

func TestCreatePgxIdentifier(t *testing.T) {
	tests := []struct {
		name           string
		input          string
		expectedResult string
	}{
		{
			name:           "Test simple name",
			input:          "table",
			expectedResult: `"table"`,
		},
		{
			name:           "Test name with schema",
			input:          "schema.table",
			expectedResult: `"schema"."table"`,
		},
		{
			name:           "Test wrong name",
			input:          "database.schema.table",
			expectedResult: `"database.schema.table"`,
		},
		{
			name:           "Test empty string",
			input:          "",
			expectedResult: `""`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CreatePgxIdentifier(tt.input).Sanitize()
			if result != tt.expectedResult {
				t.Errorf("CreatePgxIdentifier(%v) = %v; want %v", tt.input, result, tt.expectedResult)
			}
		})
	}
}

func TestValidateTableName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "Test simple name", input: "churn"},
		{name: "Test name with schema", input: "raw.churn"},
		{name: "Test wrong name", input: "db.raw.churn", wantErr: true},
		{name: "Test blank name", input: "  ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTableName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTableName(%v) error = %v; wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
