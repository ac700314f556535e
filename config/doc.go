// Copyright 2025 Poiesic Systems
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


// Package config loads answerit settings.
//
// Values are layered with increasing priority: built-in defaults, a TOML
// file, a .env file (loaded into the environment with godotenv), ANSWERIT_*
// environment variables and finally command line flags, which the CLI
// applies on top of the loaded Config. The result is checked with
// go-playground/validator struct tags.
//
// Example answerit.toml:
//
//	[server]
//	addr = ":8000"
//	workers = 32
//
//	[ai]
//	embedding_host = "http://localhost:11434"
//	embedding_model = "all-minilm"
//	vision_model = "llava"
//
//	[corpus]
//	data_dir = "/var/lib/answerit"
//	chunk_store = "badger"
//	index_backend = "file"
package config
