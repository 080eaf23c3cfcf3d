package main

import "github.com/frahmantamala/recruiter-reports/cmd"

func main() {
	cmd.Execute()
}
