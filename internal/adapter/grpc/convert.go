package grpc

import (
	"math"

	"google.golang.org/protobuf/types/known/structpb"

	"user-query-service/internal/usecase/user"
	apperrors "user-query-service/pkg/errors"
)

func userToStruct(u user.User) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"first_name": structpb.NewStringValue(u.FirstName),
		"last_name":  structpb.NewStringValue(u.LastName),
		"age":        structpb.NewNumberValue(float64(u.Age)),
		"privileges": structpb.NewListValue(stringList(u.Privileges)),
	}}
}

func userList(users []user.User) *structpb.ListValue {
	values := make([]*structpb.Value, len(users))
	for i, u := range users {
		values[i] = structpb.NewStructValue(userToStruct(u))
	}
	return &structpb.ListValue{Values: values}
}

func stringList(items []string) *structpb.ListValue {
	values := make([]*structpb.Value, len(items))
	for i, s := range items {
		values[i] = structpb.NewStringValue(s)
	}
	return &structpb.ListValue{Values: values}
}

// stringField reads an optional string field; absent fields read as "".
func stringField(fields map[string]*structpb.Value, name string) (string, error) {
	v, ok := fields[name]
	if !ok {
		return "", nil
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", apperrors.NewValidationError(name, "must be a string")
	}
	return s.StringValue, nil
}

// intField reads an optional whole-number field.
func intField(fields map[string]*structpb.Value, name string) (*int, error) {
	v, ok := fields[name]
	if !ok {
		return nil, nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, nil
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || n.NumberValue != math.Trunc(n.NumberValue) ||
		n.NumberValue > math.MaxInt32 || n.NumberValue < math.MinInt32 {
		return nil, apperrors.NewValidationError(name, "must be a whole number")
	}
	i := int(n.NumberValue)
	return &i, nil
}

// stringsField reads an optional list of strings.
func stringsField(fields map[string]*structpb.Value, name string) ([]string, error) {
	v, ok := fields[name]
	if !ok {
		return nil, nil
	}
	list, ok := v.GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, apperrors.NewValidationError(name, "must be a list of strings")
	}
	out := make([]string, 0, len(list.ListValue.GetValues()))
	for _, item := range list.ListValue.GetValues() {
		s, ok := item.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, apperrors.NewValidationError(name, "must be a list of strings")
		}
		out = append(out, s.StringValue)
	}
	return out, nil
}

func createRequestFromStruct(req *structpb.Struct) (user.CreateUserRequest, error) {
	var (
		in  user.CreateUserRequest
		err error
	)
	fields := req.GetFields()
	if in.FirstName, err = stringField(fields, "first_name"); err != nil {
		return in, err
	}
	if in.LastName, err = stringField(fields, "last_name"); err != nil {
		return in, err
	}
	age, err := intField(fields, "age")
	if err != nil {
		return in, err
	}
	if age != nil {
		in.Age = *age
	}
	if in.Privileges, err = stringsField(fields, "privileges"); err != nil {
		return in, err
	}
	return in, nil
}

func filterRequestFromStruct(req *structpb.Struct) (user.FilterRequest, error) {
	var (
		in  user.FilterRequest
		err error
	)
	fields := req.GetFields()
	if in.MinAge, err = intField(fields, "min_age"); err != nil {
		return in, err
	}
	if in.MaxAge, err = intField(fields, "max_age"); err != nil {
		return in, err
	}
	if in.Privileges, err = stringsField(fields, "privileges"); err != nil {
		return in, err
	}
	if in.LastName, err = stringField(fields, "last_name"); err != nil {
		return in, err
	}
	if in.FirstNamePrefix, err = stringField(fields, "first_name_prefix"); err != nil {
		return in, err
	}
	return in, nil
}
