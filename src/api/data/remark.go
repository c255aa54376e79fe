package data

import (
	"context"
	"log"
	"strings"

	"github.com/itering/substrate-api-rpc/client"
	"github.com/itering/substrate-api-rpc/expand"
	"github.com/redis/go-redis/v9"
)

// StartRemarkWatcher completes airgap wallet logins. Airgapped signers
// cannot return a signature over HTTP, so they broadcast the challenge
// nonce as a system.remark instead; seeing it on chain from the claimed
// signer counts as proof of key control.
func StartRemarkWatcher(ctx context.Context, rpcURL string, rdb *redis.Client) {
	api, err := client.ConnectSub(rpcURL)
	if err != nil {
		log.Printf("remark watcher connect: %v", err)
		return
	}

	sub, err := api.RPC.Chain.SubscribeNewHeads()
	if err != nil {
		log.Printf("remark watcher head sub: %v", err)
		return
	}

	go func() {
		for {
			select {
			case head := <-sub.Chan():
				block, err := api.RPC.Chain.GetBlock(head.Hash())
				if err != nil {
					continue
				}
				for _, ext := range block.Block.Extrinsics {
					remarkBytes, err := expand.DecodeRemark(ext.Method.Args)
					if err != nil || len(remarkBytes) == 0 {
						continue
					}
					onRemark(ctx, rdb, ext.Signature.Signer.AsID.ToHexString(),
						strings.TrimSpace(string(remarkBytes)))
				}

			case <-ctx.Done():
				sub.Unsubscribe()
				return
			}
		}
	}()
}

// onRemark confirms the pending challenge for addr, but only when the
// broadcast remark matches the nonce we issued.
func onRemark(ctx context.Context, rdb *redis.Client, addr, remark string) {
	if len(remark) < 8 {
		return
	}
	pending, err := rdb.Get(ctx, noncePrefix+addr).Result()
	if err != nil || pending != remark {
		return
	}
	if err := ConfirmNonce(ctx, rdb, addr); err != nil {
		log.Printf("confirm nonce for %s: %v", addr, err)
	}
}
