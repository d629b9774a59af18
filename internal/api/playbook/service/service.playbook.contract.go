// Package playbooksvc - engine thực thi playbook run: hoàn thành step,
// resolve dependency, validate output contract và recompute progress.
package playbooksvc

import (
	"encoding/json"
	"fmt"

	"playbook_engine/internal/api/playbook/models"
	"playbook_engine/internal/common"
)

// ValidateOutputs kiểm tra outputs với contract của step. Trả về lỗi RUN_005
// cho vi phạm ĐẦU TIÊN theo thứ tự khai báo trong contract: duyệt requiredFields
// trước, sau đó duyệt fieldTypes theo thứ tự requiredFields. Không chỉnh sửa
// outputs, không validate các field ngoài contract.
func ValidateOutputs(contract *models.OutputContract, outputs map[string]interface{}) error {
	if contract == nil {
		return nil
	}

	for _, field := range contract.RequiredFields {
		value, exists := outputs[field]
		if !exists || value == nil {
			return common.NewRunContractError(field, "thiếu field bắt buộc")
		}
	}

	if len(contract.FieldTypes) == 0 {
		return nil
	}

	// Duyệt theo thứ tự requiredFields để vi phạm đầu tiên ổn định,
	// sau đó tới các field có khai báo kiểu nhưng không bắt buộc.
	checked := map[string]bool{}
	for _, field := range contract.RequiredFields {
		expectedType, ok := contract.FieldTypes[field]
		if !ok {
			continue
		}
		checked[field] = true
		if err := validateFieldType(field, expectedType, outputs[field]); err != nil {
			return err
		}
	}
	for field, expectedType := range contract.FieldTypes {
		if checked[field] {
			continue
		}
		value, exists := outputs[field]
		if !exists || value == nil {
			// Field không bắt buộc: vắng mặt là hợp lệ, chỉ check kiểu khi có giá trị
			continue
		}
		if err := validateFieldType(field, expectedType, value); err != nil {
			return err
		}
	}

	return nil
}

// validateFieldType so khớp giá trị thực tế với tên kiểu khai báo trong contract.
// Kiểu không nhận dạng được coi là vi phạm (fail-closed).
func validateFieldType(field string, expectedType string, value interface{}) error {
	if value == nil {
		return common.NewRunContractError(field, fmt.Sprintf("mong đợi kiểu %s, nhận được null", expectedType))
	}

	var ok bool
	switch expectedType {
	case "string":
		_, ok = value.(string)
	case "number":
		ok = isNumeric(value)
	case "boolean":
		_, ok = value.(bool)
	case "object":
		_, ok = value.(map[string]interface{})
	case "array":
		_, ok = value.([]interface{})
	default:
		return common.NewRunContractError(field, fmt.Sprintf("kiểu khai báo '%s' không được hỗ trợ", expectedType))
	}

	if !ok {
		return common.NewRunContractError(field, fmt.Sprintf("mong đợi kiểu %s, nhận được %T", expectedType, value))
	}
	return nil
}

// isNumeric chấp nhận các kiểu số Go lẫn json.Number (payload decode qua UseNumber)
func isNumeric(value interface{}) bool {
	switch value.(type) {
	case float64, float32,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		json.Number:
		return true
	}
	return false
}
