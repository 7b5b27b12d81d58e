package reconcile

import "errors"

// ErrBannerUnavailable 横幅不存在、非可交互态或正被其他在途接受压制
var ErrBannerUnavailable = errors.New("banner is not available for interaction")
