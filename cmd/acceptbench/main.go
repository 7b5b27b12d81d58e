package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/d60-Lab/pairlink/config"
	"github.com/d60-Lab/pairlink/internal/model"
	"github.com/d60-Lab/pairlink/internal/repository"
	"github.com/d60-Lab/pairlink/internal/service"
	"github.com/d60-Lab/pairlink/pkg/database"
)

func must[T any](v T, err error) T { if err != nil { panic(err) }; return v }

// 压测并发 accept 的条件写防线：同一个接受者面对 N 条 pending 请求
// 并发全部尝试接受，结束后 accepted 必须恰好 1 条
func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))

	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	partnerRepo := repository.NewPartnershipRepository(db)
	feedRepo := repository.NewFeedEventRepository(db)
	graph := service.NewSocialGraphService(followRepo, nil, 0)
	svc := service.NewPartnershipService(partnerRepo, userRepo, graph, service.NewFeedEmitter(feedRepo))

	ctx := context.Background()

	N := 200
	if s := os.Getenv("N"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 { N = n }
	}
	CONC := 16
	if s := os.Getenv("CONC"); s != "" {
		if c, err := strconv.Atoi(s); err == nil && c > 0 { CONC = c }
	}

	// 接受者 v0，N 个互关的请求方各发一条 pending 请求
	accepter := model.User{ID: uuid.New().String(), Username: "v0", Email: "v0@example.com", Password: "p"}
	_ = db.Create(&accepter).Error
	ids := make([]string, 0, N)
	for i := 0; i < N; i++ {
		u := model.User{ID: uuid.New().String(), Username: fmt.Sprintf("r%04d", i), Email: fmt.Sprintf("r%04d@example.com", i), Password: "p"}
		_ = db.Create(&u).Error
		_ = followRepo.Create(ctx, u.ID, accepter.ID)
		_ = followRepo.Create(ctx, accepter.ID, u.ID)
		p, err := svc.Request(ctx, u.ID, accepter.ID)
		if err != nil {
			panic(err)
		}
		ids = append(ids, p.ID)
	}

	var succeeded, conflicted atomic.Int64
	recs := make([]time.Duration, N)
	feed := make(chan int, N)
	for i := range ids { feed <- i }
	close(feed)

	t0 := time.Now()
	var wg sync.WaitGroup
	for w := 0; w < CONC; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range feed {
				st := time.Now()
				_, err := svc.Accept(ctx, ids[i], accepter.ID)
				recs[i] = time.Since(st)
				if err == nil {
					succeeded.Add(1)
				} else {
					conflicted.Add(1)
				}
			}
		}()
	}
	wg.Wait()
	total := time.Since(t0)

	var acceptedRows int64
	_ = db.Model(&model.Partnership{}).
		Where("status = ? AND (user_a_id = ? OR user_b_id = ?)", model.PartnershipAccepted, accepter.ID, accepter.ID).
		Count(&acceptedRows).Error

	pct := func(vs []time.Duration, p float64) time.Duration {
		if len(vs) == 0 { return 0 }
		xs := append([]time.Duration(nil), vs...)
		sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
		k := int(math.Ceil(p*float64(len(xs)))) - 1
		if k < 0 { k = 0 }
		if k >= len(xs) { k = len(xs) - 1 }
		return xs[k]
	}

	fmt.Printf("N=%d, CONC=%d\n", N, CONC)
	fmt.Printf("Accept total: %v, per op: %v, p50: %v, p95: %v, p99: %v\n",
		total, total/time.Duration(N), pct(recs, 0.50), pct(recs, 0.95), pct(recs, 0.99))
	fmt.Printf("succeeded=%d, rejected=%d, accepted rows for accepter=%d (want 1)\n",
		succeeded.Load(), conflicted.Load(), acceptedRows)
	if acceptedRows != 1 {
		fmt.Println("INVARIANT VIOLATED: more than one accepted partnership for a single user")
		os.Exit(1)
	}
}
