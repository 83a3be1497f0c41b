// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/bootrunner/bootrunner/cmd/bootrunner"

func main() {
	cmd.Execute()
}
