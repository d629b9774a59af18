// Package playbooksvc - Test ValidateOutputs: field bắt buộc, so khớp kiểu,
// vi phạm đầu tiên được nêu tên field.
package playbooksvc

import (
	"encoding/json"
	"testing"

	"playbook_engine/internal/api/playbook/models"
	"playbook_engine/internal/common"
)

func contractErr(t *testing.T, err error) *common.Error {
	t.Helper()
	if err == nil {
		t.Fatal("mong đợi lỗi contract, nhận được nil")
	}
	e, ok := err.(*common.Error)
	if !ok {
		t.Fatalf("mong đợi *common.Error, nhận được %T", err)
	}
	if e.Code.Code != common.ErrCodeRunContract.Code {
		t.Fatalf("mong đợi mã lỗi %s, nhận được %s", common.ErrCodeRunContract.Code, e.Code.Code)
	}
	return e
}

func violatedField(t *testing.T, err error) string {
	t.Helper()
	e := contractErr(t, err)
	details, ok := e.Details.(map[string]any)
	if !ok {
		t.Fatalf("Details không phải map, nhận được %T", e.Details)
	}
	field, _ := details["field"].(string)
	return field
}

func TestValidateOutputs_NilContract(t *testing.T) {
	if err := ValidateOutputs(nil, map[string]interface{}{"anything": 1}); err != nil {
		t.Errorf("step không có contract thì mọi outputs đều hợp lệ, nhận được lỗi: %v", err)
	}
	if err := ValidateOutputs(nil, nil); err != nil {
		t.Errorf("nil contract + nil outputs phải hợp lệ, nhận được lỗi: %v", err)
	}
}

func TestValidateOutputs_MissingRequiredField(t *testing.T) {
	contract := &models.OutputContract{
		RequiredFields: []string{"amount", "approved"},
	}
	err := ValidateOutputs(contract, map[string]interface{}{"approved": true})
	if field := violatedField(t, err); field != "amount" {
		t.Errorf("field vi phạm phải là 'amount', nhận được '%s'", field)
	}
}

func TestValidateOutputs_RequiredFieldNullIsMissing(t *testing.T) {
	contract := &models.OutputContract{RequiredFields: []string{"amount"}}
	err := ValidateOutputs(contract, map[string]interface{}{"amount": nil})
	if field := violatedField(t, err); field != "amount" {
		t.Errorf("field bắt buộc mang giá trị null phải bị coi là thiếu, field vi phạm: '%s'", field)
	}
}

func TestValidateOutputs_TypeMismatch(t *testing.T) {
	contract := &models.OutputContract{
		RequiredFields: []string{"amount"},
		FieldTypes:     map[string]string{"amount": "number"},
	}
	err := ValidateOutputs(contract, map[string]interface{}{"amount": "12000"})
	if field := violatedField(t, err); field != "amount" {
		t.Errorf("string cho field kiểu number phải vi phạm tại 'amount', nhận được '%s'", field)
	}
}

func TestValidateOutputs_FirstViolationInDeclaredOrder(t *testing.T) {
	// Cả hai field đều sai kiểu: vi phạm được báo theo thứ tự requiredFields
	contract := &models.OutputContract{
		RequiredFields: []string{"amount", "note"},
		FieldTypes:     map[string]string{"amount": "number", "note": "string"},
	}
	err := ValidateOutputs(contract, map[string]interface{}{"amount": "x", "note": 5})
	if field := violatedField(t, err); field != "amount" {
		t.Errorf("vi phạm đầu tiên phải theo thứ tự khai báo, mong 'amount', nhận '%s'", field)
	}
}

func TestValidateOutputs_AllTypeNames(t *testing.T) {
	contract := &models.OutputContract{
		FieldTypes: map[string]string{
			"s": "string", "n": "number", "b": "boolean", "o": "object", "a": "array",
		},
	}
	outputs := map[string]interface{}{
		"s": "ok",
		"n": json.Number("42"),
		"b": false,
		"o": map[string]interface{}{"k": "v"},
		"a": []interface{}{1, 2},
	}
	if err := ValidateOutputs(contract, outputs); err != nil {
		t.Errorf("outputs đúng kiểu cho cả 5 tên kiểu phải hợp lệ, nhận được: %v", err)
	}
}

func TestValidateOutputs_OptionalTypedFieldAbsent(t *testing.T) {
	contract := &models.OutputContract{
		RequiredFields: []string{"amount"},
		FieldTypes:     map[string]string{"amount": "number", "note": "string"},
	}
	// note có khai báo kiểu nhưng không bắt buộc: vắng mặt là hợp lệ
	if err := ValidateOutputs(contract, map[string]interface{}{"amount": 3.5}); err != nil {
		t.Errorf("field có kiểu nhưng không bắt buộc được phép vắng mặt, nhận được: %v", err)
	}
}

func TestValidateOutputs_UnknownDeclaredType(t *testing.T) {
	contract := &models.OutputContract{
		RequiredFields: []string{"amount"},
		FieldTypes:     map[string]string{"amount": "decimal"},
	}
	// Tên kiểu lạ trong contract phải vi phạm thay vì được bỏ qua
	err := ValidateOutputs(contract, map[string]interface{}{"amount": 1})
	if field := violatedField(t, err); field != "amount" {
		t.Errorf("kiểu khai báo không hỗ trợ phải vi phạm tại field đó, nhận '%s'", field)
	}
}

func TestValidateOutputs_ExtraFieldsIgnored(t *testing.T) {
	contract := &models.OutputContract{
		RequiredFields: []string{"amount"},
		FieldTypes:     map[string]string{"amount": "number"},
	}
	outputs := map[string]interface{}{"amount": 9, "extra": "không trong contract"}
	if err := ValidateOutputs(contract, outputs); err != nil {
		t.Errorf("field ngoài contract không được validate, nhận được: %v", err)
	}
}
