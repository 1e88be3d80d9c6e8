//go:build !gocv

package camera

import "fmt"

func openCVDevice(id int) (Device, error) {
	return nil, fmt.Errorf("camera device %d requested but the binary was built without the gocv tag", id)
}
