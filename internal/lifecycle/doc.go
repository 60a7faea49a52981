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
Package lifecycle launches and tracks the managed coordination-service
process as a detached daemon.

# PID Files

The pidfile is the only link between a supervisor invocation and the process
it launched. Creation uses O_EXCL and an exclusive flock so concurrent
launches cannot both claim it:

	manager := lifecycle.NewPIDFileManager("/tmp/zookeeper.2181.pid")
	if err := manager.Create(1234); err != nil {
	    // Handle error
	}
	manager.Release()

# Daemon

Daemon combines spawning, pidfile bookkeeping and signalling:

	d := lifecycle.NewDaemon(lifecycle.WithMarker("/tmp/zoo.2181.cfg"))
	pid, err := d.Launch(ctx, lifecycle.LaunchSpec{
	    Command:     []string{"java", "-cp", "zk.jar", "/tmp/zoo.2181.cfg"},
	    PIDFile:     "/tmp/zookeeper.2181.pid",
	    GracePeriod: 5 * time.Second,
	})

	if d.IsAlive("/tmp/zookeeper.2181.pid") {
	    err = d.Terminate(ctx, "/tmp/zookeeper.2181.pid", 7*time.Second)
	}

Terminate sends SIGTERM, waits for the grace period and then sends SIGKILL.

# Lifecycle Logging

Launch and terminate events are appended as JSON lines when a log file is
configured:

	logger := lifecycle.NewLifecycleLogger("/var/log/zkctl.log")
	logger.LogLaunch(command, pidfile)
*/
package lifecycle
