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

//go:build darwin && cgo

package secrets

/*
#cgo CFLAGS: -Wno-deprecated-declarations
#cgo LDFLAGS: -framework CoreFoundation -framework Security

#include <stdlib.h>
#include <string.h>
#include <CoreFoundation/CoreFoundation.h>
#include <Security/Security.h>

// keystash_status_message returns a malloc'd UTF-8 copy of the message for
// status, or NULL. The caller frees it.
static char *keystash_status_message(OSStatus status) {
	CFStringRef msg = SecCopyErrorMessageString(status, NULL);
	if (msg == NULL) {
		return NULL;
	}
	CFIndex size = CFStringGetMaximumSizeForEncoding(CFStringGetLength(msg), kCFStringEncodingUTF8) + 1;
	char *buf = malloc(size);
	if (buf != NULL && !CFStringGetCString(msg, buf, size, kCFStringEncodingUTF8)) {
		free(buf);
		buf = NULL;
	}
	CFRelease(msg);
	return buf;
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// securityFramework binds keychainAPI to the Security framework.
type securityFramework struct{}

func systemKeychain() keychainAPI {
	return securityFramework{}
}

func (securityFramework) Find(service, account []byte, wantData, wantItem bool) (handle, handle, int, Status) {
	cService := C.CBytes(service)
	defer C.free(cService)
	cAccount := C.CBytes(account)
	defer C.free(cAccount)

	var (
		length    C.UInt32
		data      unsafe.Pointer
		item      C.SecKeychainItemRef
		lengthPtr *C.UInt32
		dataPtr   *unsafe.Pointer
		itemPtr   *C.SecKeychainItemRef
	)
	if wantData {
		lengthPtr = &length
		dataPtr = &data
	}
	if wantItem {
		itemPtr = &item
	}

	st := Status(C.SecKeychainFindGenericPassword(
		nil,
		C.UInt32(len(service)), (*C.char)(cService),
		C.UInt32(len(account)), (*C.char)(cAccount),
		lengthPtr, dataPtr, itemPtr,
	))
	if st != StatusSuccess {
		return nil, nil, 0, st
	}

	var itemHandle, dataHandle handle
	if wantItem && item != nil {
		itemHandle = item
	}
	if wantData && data != nil {
		dataHandle = data
	}
	return itemHandle, dataHandle, int(length), st
}

func (securityFramework) CopyBytes(data handle, n int) []byte {
	if n == 0 {
		return []byte{}
	}
	return C.GoBytes(data.(unsafe.Pointer), C.int(n))
}

func (securityFramework) FreeContent(data handle) Status {
	return Status(C.SecKeychainItemFreeContent(nil, data.(unsafe.Pointer)))
}

func (securityFramework) Add(service, account, payload []byte) Status {
	cService := C.CBytes(service)
	defer C.free(cService)
	cAccount := C.CBytes(account)
	defer C.free(cAccount)
	cPayload := C.CBytes(payload)
	defer freeWiped(cPayload, len(payload))

	return Status(C.SecKeychainAddGenericPassword(
		nil,
		C.UInt32(len(service)), (*C.char)(cService),
		C.UInt32(len(account)), (*C.char)(cAccount),
		C.UInt32(len(payload)), cPayload,
		nil,
	))
}

func (securityFramework) Modify(item handle, payload []byte) Status {
	cPayload := C.CBytes(payload)
	defer freeWiped(cPayload, len(payload))

	return Status(C.SecKeychainItemModifyContent(
		item.(C.SecKeychainItemRef), nil, C.UInt32(len(payload)), cPayload,
	))
}

func (securityFramework) Delete(item handle) Status {
	return Status(C.SecKeychainItemDelete(item.(C.SecKeychainItemRef)))
}

func (securityFramework) Release(item handle) {
	C.CFRelease(C.CFTypeRef(unsafe.Pointer(item.(C.SecKeychainItemRef))))
}

func (securityFramework) StatusMessage(st Status) string {
	msg := C.keystash_status_message(C.OSStatus(st))
	if msg == nil {
		return fmt.Sprintf("OSStatus %d", int32(st))
	}
	defer C.free(unsafe.Pointer(msg))
	return C.GoString(msg)
}

// freeWiped zeroes a C copy of secret material before freeing it.
func freeWiped(p unsafe.Pointer, n int) {
	if p == nil {
		return
	}
	if n > 0 {
		C.memset(p, 0, C.size_t(n))
	}
	C.free(p)
}
