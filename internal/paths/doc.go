// SPDX-License-Identifier: MPL-2.0

// Provides the directories the runner materializes its environment into.
//
// Defaults follow XDG conventions on Linux and platform-native conventions on
// macOS and Windows, with "bootrunner" as the subdirectory under each base path.
// Every directory can be overridden through configuration.
package paths
