package ratelimit_test

import (
	"fmt"

	"capsearch/internal/ratelimit"
)

func ExampleSplit() {
	// 100 rps across 3 generators
	fmt.Println(ratelimit.Split(100, 3))
	// Output: [34 33 33]
}
