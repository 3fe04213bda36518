package classfile

import "testing"

func TestParseMethodDescriptor(t *testing.T) {
	tests := []struct {
		in         string
		wantParams []FieldType
		wantReturn FieldType
	}{
		{
			in:         "()V",
			wantParams: nil,
			wantReturn: FieldType{Base: TypeVoid},
		},
		{
			in:         "(I)I",
			wantParams: []FieldType{{Base: TypeInt}},
			wantReturn: FieldType{Base: TypeInt},
		},
		{
			in: "(Ljava/lang/String;I[B)V",
			wantParams: []FieldType{
				{Base: TypeClass, ClassName: "java/lang/String"},
				{Base: TypeInt},
				{Base: TypeArray, Dimensions: 1, Elem: &FieldType{Base: TypeByte}},
			},
			wantReturn: FieldType{Base: TypeVoid},
		},
		{
			in: "(JD)Ljava/lang/Object;",
			wantParams: []FieldType{
				{Base: TypeLong},
				{Base: TypeDouble},
			},
			wantReturn: FieldType{Base: TypeClass, ClassName: "java/lang/Object"},
		},
		{
			in:         "([[I)[[I",
			wantParams: []FieldType{{Base: TypeArray, Dimensions: 2, Elem: &FieldType{Base: TypeInt}}},
			wantReturn: FieldType{Base: TypeArray, Dimensions: 2, Elem: &FieldType{Base: TypeInt}},
		},
	}

	for _, tt := range tests {
		got, err := ParseMethodDescriptor(tt.in)
		if err != nil {
			t.Fatalf("ParseMethodDescriptor(%q): %v", tt.in, err)
		}
		if len(got.Parameters) != len(tt.wantParams) {
			t.Fatalf("ParseMethodDescriptor(%q).Parameters = %+v, want %+v", tt.in, got.Parameters, tt.wantParams)
		}
		for i, p := range got.Parameters {
			if p.String() != tt.wantParams[i].String() {
				t.Errorf("ParseMethodDescriptor(%q).Parameters[%d] = %v, want %v", tt.in, i, p, tt.wantParams[i])
			}
		}
		if got.ReturnType.String() != tt.wantReturn.String() {
			t.Errorf("ParseMethodDescriptor(%q).ReturnType = %v, want %v", tt.in, got.ReturnType, tt.wantReturn)
		}
	}
}

func TestParseMethodDescriptorErrors(t *testing.T) {
	tests := []string{
		"",
		"I)V",
		"(I",
		"(I)",
		"(Ljava/lang/String)V", // missing ';'
		"(X)V",                 // unrecognized tag
		"(I)VV",                // trailing data
	}
	for _, in := range tests {
		if _, err := ParseMethodDescriptor(in); err == nil {
			t.Errorf("ParseMethodDescriptor(%q): want error, got nil", in)
		}
	}
}

func TestParseFieldDescriptor(t *testing.T) {
	ft, err := ParseFieldDescriptor("[Ljava/lang/String;")
	if err != nil {
		t.Fatalf("ParseFieldDescriptor: %v", err)
	}
	if ft.Base != TypeArray || ft.Dimensions != 1 {
		t.Fatalf("ParseFieldDescriptor = %+v, want array of dimension 1", ft)
	}
	if ft.Elem.Base != TypeClass || ft.Elem.ClassName != "java/lang/String" {
		t.Fatalf("ParseFieldDescriptor element = %+v, want class java/lang/String", ft.Elem)
	}
	if ft.String() != "[Ljava/lang/String;" {
		t.Errorf("String() = %q, want %q", ft.String(), "[Ljava/lang/String;")
	}

	if _, err := ParseFieldDescriptor("II"); err == nil {
		t.Error("ParseFieldDescriptor(\"II\"): want error for trailing data, got nil")
	}
}

func TestFieldTypeIsTwoSlot(t *testing.T) {
	tests := []struct {
		ft   FieldType
		want bool
	}{
		{FieldType{Base: TypeLong}, true},
		{FieldType{Base: TypeDouble}, true},
		{FieldType{Base: TypeInt}, false},
		{FieldType{Base: TypeClass, ClassName: "java/lang/Object"}, false},
	}
	for _, tt := range tests {
		if got := tt.ft.IsTwoSlot(); got != tt.want {
			t.Errorf("FieldType{Base: %q}.IsTwoSlot() = %v, want %v", tt.ft.Base, got, tt.want)
		}
	}
}

func TestMethodDescriptorParameterSlotCount(t *testing.T) {
	desc, err := ParseMethodDescriptor("(IJDLjava/lang/String;)V")
	if err != nil {
		t.Fatalf("ParseMethodDescriptor: %v", err)
	}
	if got, want := desc.ParameterSlotCount(), 6; got != want {
		t.Errorf("ParameterSlotCount() = %d, want %d", got, want)
	}
}
