// Package main builds pam_oidc_device.so, a PAM service module running the OAuth 2.0
// device authorization grant:
//
//	go build -buildmode=c-shared -o pam_oidc_device.so ./lib/pam_oidc_device
//
//	auth required pam_oidc_device.so device_authorize_url=... token_url=... client_id=...
package main

/*
#cgo LDFLAGS: -lpam
#include <stdlib.h>
#include "pam_helpers.h"
*/
import "C"

import (
	"context"
	"errors"
	"fmt"
	"os"
	"unsafe"
)

var errPAM = errors.New("pam call failed")

// pam_sm_authenticate is called by PAM for the auth facility.
//
//export pam_sm_authenticate
//goland:noinspection GoSnakeCaseUsage,GoUnusedFunction
func pam_sm_authenticate(pamh *C.pam_handle_t, flags C.int, argc C.int, argv **C.char) C.int {
	if err := login(context.Background(), argvToStrings(argc, argv), &pamHost{pamh: pamh}, os.Stderr); err != nil {
		return C.PAM_AUTH_ERR
	}

	return C.PAM_SUCCESS
}

// pam_sm_setcred has no credentials to establish.
//
//export pam_sm_setcred
//goland:noinspection GoSnakeCaseUsage,GoUnusedFunction
func pam_sm_setcred(pamh *C.pam_handle_t, flags C.int, argc C.int, argv **C.char) C.int {
	return C.PAM_SUCCESS
}

func argvToStrings(argc C.int, argv **C.char) []string {
	if argv == nil || argc <= 0 {
		return nil
	}

	ptrs := unsafe.Slice(argv, int(argc))
	strs := make([]string, len(ptrs))

	for i, s := range ptrs {
		strs[i] = C.GoString(s)
	}

	return strs
}

// pamHost reads and writes the PAM handle of the current transaction.
type pamHost struct {
	pamh *C.pam_handle_t
}

func (h *pamHost) User() (string, error) {
	var user *C.char

	if ret := C.get_user(h.pamh, &user); ret != C.PAM_SUCCESS {
		return "", fmt.Errorf("%w: pam_get_item(PAM_USER) returned %d", errPAM, int(ret))
	}

	if user == nil {
		return "", nil
	}

	return C.GoString(user), nil
}

func (h *pamHost) SetUser(name string) error {
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))

	if ret := C.set_user(h.pamh, cName); ret != C.PAM_SUCCESS {
		return fmt.Errorf("%w: pam_set_item(PAM_USER) returned %d", errPAM, int(ret))
	}

	return nil
}

func (h *pamHost) Info(message string) error {
	_, err := h.send(C.PAM_TEXT_INFO, message)

	return err
}

func (h *pamHost) Prompt(message string) (string, error) {
	return h.send(C.PAM_PROMPT_ECHO_OFF, message)
}

func (h *pamHost) Error(message string) error {
	_, err := h.send(C.PAM_ERROR_MSG, message)

	return err
}

func (h *pamHost) send(style C.int, message string) (string, error) {
	cMessage := C.CString(message)
	defer C.free(unsafe.Pointer(cMessage))

	var resp *C.char

	if ret := C.conv_send(h.pamh, style, cMessage, &resp); ret != C.PAM_SUCCESS {
		return "", fmt.Errorf("%w: conversation returned %d", errPAM, int(ret))
	}

	if resp == nil {
		return "", nil
	}

	defer C.free(unsafe.Pointer(resp))

	return C.GoString(resp), nil
}
