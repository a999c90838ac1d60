// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !race

package stress_test

// raceEnabled is false for ordinary (non -race) test runs. The teacher's
// own race_test.go only covers the race-tagged half of this pair; this
// file supplies the other half so raceEnabled is always defined.
const raceEnabled = false
