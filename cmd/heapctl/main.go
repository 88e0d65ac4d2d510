// Command heapctl exercises the heapkit allocators with benchmark traces,
// concurrent stress runs and invariant checks.
package main

func main() {
	execute()
}
