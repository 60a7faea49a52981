// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

/*
Package controller implements start, stop and status for the managed
coordination-service process.

A Controller renders the config and myid files, builds the launch command
and hands the process to a Supervisor. Status asks the Supervisor whether the
pidfile names a live process and only then speaks the four-letter-word
protocol to the process:

	p, _ := params.Load("/etc/zkctl/params.yaml", nil)
	c := controller.New(p, lifecycle.NewDaemon())

	if _, err := c.Start(ctx); err != nil {
	    // config or myid could not be written, or the launch failed
	}

	switch c.Status(ctx) {
	case probe.Running:
	case probe.NotRunning:
	case probe.Broken:
	}

Start does not wait for the process to become healthy. Callers poll Status
(see the poll package) until it reports Running.
*/
package controller
