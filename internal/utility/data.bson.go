package utility

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// CustomBson dùng để thực hiện các thao tác bson tùy chỉnh
// như set, push, unset bằng cách sử dụng các struct
type CustomBson struct{}

// BsonWrapper chứa các toán tử bson cơ bản ($set, $unset, $push, $addToSet).
// Gán struct dữ liệu vào field tương ứng rồi gọi ToMap để được query mongo hoàn chỉnh,
// ví dụ Set={name:"Jack"} → { $set : {name : "Jack"}}
type BsonWrapper struct {
	Set      interface{} `json:"$set,omitempty" bson:"$set,omitempty"`
	Unset    interface{} `json:"$unset,omitempty" bson:"$unset,omitempty"`
	Push     interface{} `json:"$push,omitempty" bson:"$push,omitempty"`
	AddToSet interface{} `json:"$addToSet,omitempty" bson:"$addToSet,omitempty"`
}

// ToMap chuyển đổi struct thành map thông qua bson marshal/unmarshal
func ToMap(s interface{}) (map[string]interface{}, error) {
	var stringInterfaceMap map[string]interface{}
	itr, err := bson.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("bson marshal failed: %w", err)
	}
	err = bson.Unmarshal(itr, &stringInterfaceMap)
	if err != nil {
		return nil, fmt.Errorf("bson unmarshal failed: %w", err)
	}
	return stringInterfaceMap, nil
}

// Set tạo truy vấn $set
func (customBson *CustomBson) Set(data interface{}) (map[string]interface{}, error) {
	return ToMap(BsonWrapper{Set: data})
}

// Push tạo truy vấn $push
func (customBson *CustomBson) Push(data interface{}) (map[string]interface{}, error) {
	return ToMap(BsonWrapper{Push: data})
}

// Unset tạo truy vấn $unset
func (customBson *CustomBson) Unset(data interface{}) (map[string]interface{}, error) {
	return ToMap(BsonWrapper{Unset: data})
}

// AddToSet tạo truy vấn $addToSet
func (customBson *CustomBson) AddToSet(data interface{}) (map[string]interface{}, error) {
	return ToMap(BsonWrapper{AddToSet: data})
}
