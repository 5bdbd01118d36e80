package executor

import "fmt"

func debugPrintf(format string, args ...interface{}) {
	fmt.Printf("[executor] "+format+"\n", args...)
}
