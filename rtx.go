package p4utils

//
// Runtime assertions
//

// Must0 panics when err is not nil.
func Must0(err error) {
	if err != nil {
		panic(err)
	}
}

// Must1 panics when err is not nil, otherwise returns value.
func Must1[Type any](value Type, err error) Type {
	Must0(err)
	return value
}
