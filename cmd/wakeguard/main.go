// Command wakeguard collects labelled facial-landmark datasets for
// drowsiness detection.
package main

func main() {
	Execute()
}
