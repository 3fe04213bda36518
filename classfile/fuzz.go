package classfile

// Fuzz is an OSS-Fuzz style entrypoint exercising Decode against arbitrary
// input, grounded on the teacher repo's single-function Fuzz(data []byte) int
// convention.
func Fuzz(data []byte) int {
	cf, err := Decode(data)
	if err != nil {
		return 0
	}
	if cf.ThisClassName == "" {
		return 0
	}
	return 1
}
