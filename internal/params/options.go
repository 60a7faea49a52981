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

package params

// Options is the typed form of a parameter set. Zero values mean "not
// supplied", so New applies the same defaults and validation as Parse.
type Options struct {
	ClientPort int
	TickTime   int
	DataDir    string

	// Settings holds optional config keys such as initLimit or forceSync.
	Settings map[string]any

	Servers map[int]ServerEntry
	MyID    int

	User          string
	LogFile       string
	StdoutFile    string
	StderrFile    string
	PIDFile       string
	ConfigFile    string
	Port          int
	Runtime       string
	JVMArgs       []string
	LivenessCheck LivenessFunc
}

// New validates o and returns the resulting parameter set.
func New(o Options) (*Params, error) {
	return Parse(o.values())
}

func (o Options) values() map[string]any {
	values := make(map[string]any, len(o.Settings)+8)
	for k, v := range o.Settings {
		values[k] = v
	}

	if o.ClientPort != 0 {
		values[KeyClientPort] = o.ClientPort
	}
	if o.TickTime != 0 {
		values[KeyTickTime] = o.TickTime
	}
	putString(values, KeyDataDir, o.DataDir)

	if len(o.Servers) > 0 {
		values[KeyServers] = o.Servers
	}
	if o.MyID != 0 {
		values[KeyMyID] = o.MyID
	}
	if o.Port != 0 {
		values[KeyPort] = o.Port
	}
	if o.JVMArgs != nil {
		values[KeyJVMArgs] = o.JVMArgs
	}
	if o.LivenessCheck != nil {
		values[KeyLivenessCheck] = o.LivenessCheck
	}

	putString(values, KeyUser, o.User)
	putString(values, KeyLogFile, o.LogFile)
	putString(values, KeyStdoutFile, o.StdoutFile)
	putString(values, KeyStderrFile, o.StderrFile)
	putString(values, KeyPIDFile, o.PIDFile)
	putString(values, KeyConfigFile, o.ConfigFile)
	putString(values, KeyRuntime, o.Runtime)
	return values
}

func putString(values map[string]any, key, v string) {
	if v != "" {
		values[key] = v
	}
}
