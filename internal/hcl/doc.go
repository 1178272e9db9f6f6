// Package hcl loads workflow files: HCL documents declaring task blocks
// whose args/kwargs templates may embed `task.<name>` references to other
// tasks' results. References are decomposed syntactically (never evaluated),
// so a loaded workflow carries real dependency links before anything runs.
//
//	task "fetch_a" {
//	  call = "time.sleep"
//	  args = [50]
//	}
//
//	task "combine" {
//	  call = "math.sum"
//	  args = [task.fetch_a, 2]
//	}
package hcl
