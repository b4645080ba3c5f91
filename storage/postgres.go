package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sorinflow/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

// Migrate creates the schema when it does not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS properties (
			id BIGSERIAL PRIMARY KEY,
			tag_number TEXT NOT NULL,
			external_id TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			total_price BIGINT,
			price_per_meter BIGINT,
			rent_price BIGINT,
			deposit BIGINT,
			area INT,
			land_area INT,
			built_area INT,
			rooms INT,
			year_built INT,
			floor INT,
			total_floors INT,
			frontage INT,
			has_elevator BOOLEAN,
			has_parking BOOLEAN,
			has_storage BOOLEAN,
			has_balcony BOOLEAN,
			building_direction TEXT NOT NULL DEFAULT '',
			unit_status TEXT NOT NULL DEFAULT '',
			document_type TEXT NOT NULL DEFAULT '',
			usage_type TEXT NOT NULL DEFAULT '',
			building_age TEXT NOT NULL DEFAULT '',
			property_type TEXT NOT NULL DEFAULT '',
			listing_type TEXT NOT NULL DEFAULT '',
			city_name TEXT NOT NULL DEFAULT '',
			district TEXT NOT NULL DEFAULT '',
			neighborhood TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			category_name TEXT NOT NULL DEFAULT '',
			phone_number TEXT NOT NULL DEFAULT '',
			seller_name TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL DEFAULT '',
			thumbnail_url TEXT NOT NULL DEFAULT '',
			images TEXT[] NOT NULL DEFAULT '{}',
			images_downloaded BOOLEAN NOT NULL DEFAULT FALSE,
			features TEXT[] NOT NULL DEFAULT '{}',
			amenities TEXT[] NOT NULL DEFAULT '{}',
			raw_data JSONB,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			posted_at TIMESTAMPTZ,
			scraped_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_properties_city ON properties (city_name)`,
		`CREATE INDEX IF NOT EXISTS idx_properties_listing_type ON properties (listing_type)`,
		`CREATE TABLE IF NOT EXISTS scraping_jobs (
			id BIGSERIAL PRIMARY KEY,
			job_id UUID NOT NULL UNIQUE,
			city TEXT NOT NULL,
			category TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			total_pages INT NOT NULL DEFAULT 0,
			scraped_pages INT NOT NULL DEFAULT 0,
			total_items INT NOT NULL DEFAULT 0,
			scraped_items INT NOT NULL DEFAULT 0,
			new_items INT NOT NULL DEFAULT 0,
			updated_items INT NOT NULL DEFAULT 0,
			failed_items INT NOT NULL DEFAULT 0,
			error_message TEXT NOT NULL DEFAULT '',
			started_at TIMESTAMPTZ,
			completed_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS job_logs (
			id BIGSERIAL PRIMARY KEY,
			job_id UUID NOT NULL,
			level TEXT NOT NULL,
			message TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS session_credentials (
			id BIGSERIAL PRIMARY KEY,
			phone_number TEXT NOT NULL UNIQUE,
			cookies JSONB NOT NULL,
			token TEXT NOT NULL DEFAULT '',
			is_valid BOOLEAN NOT NULL DEFAULT TRUE,
			expires_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS proxies (
			id BIGSERIAL PRIMARY KEY,
			address TEXT NOT NULL,
			port INT NOT NULL,
			username TEXT NOT NULL DEFAULT '',
			password TEXT NOT NULL DEFAULT '',
			protocol TEXT NOT NULL DEFAULT 'http',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			is_working BOOLEAN NOT NULL DEFAULT FALSE,
			last_checked TIMESTAMPTZ,
			fail_count INT NOT NULL DEFAULT 0,
			success_count INT NOT NULL DEFAULT 0,
			avg_response_ms DOUBLE PRECISION,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (address, port)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// =============================================================================
// Properties
// =============================================================================

const propertyColumns = `id, tag_number, external_id, title, description,
	total_price, price_per_meter, rent_price, deposit,
	area, land_area, built_area, rooms, year_built, floor, total_floors, frontage,
	has_elevator, has_parking, has_storage, has_balcony,
	building_direction, unit_status, document_type, usage_type, building_age,
	property_type, listing_type,
	city_name, district, neighborhood, address, latitude, longitude,
	category_name, phone_number, seller_name,
	url, thumbnail_url, images, images_downloaded, features, amenities, raw_data,
	is_active, posted_at, scraped_at, updated_at, created_at`

func scanProperty(row pgx.Row) (*models.Property, error) {
	var p models.Property
	err := row.Scan(
		&p.ID, &p.TagNumber, &p.ExternalID, &p.Title, &p.Description,
		&p.TotalPrice, &p.PricePerMeter, &p.RentPrice, &p.Deposit,
		&p.Area, &p.LandArea, &p.BuiltArea, &p.Rooms, &p.YearBuilt, &p.Floor, &p.TotalFloors, &p.Frontage,
		&p.HasElevator, &p.HasParking, &p.HasStorage, &p.HasBalcony,
		&p.BuildingDirection, &p.UnitStatus, &p.DocumentType, &p.UsageType, &p.BuildingAge,
		&p.PropertyType, &p.ListingType,
		&p.CityName, &p.District, &p.Neighborhood, &p.Address, &p.Latitude, &p.Longitude,
		&p.CategoryName, &p.PhoneNumber, &p.SellerName,
		&p.URL, &p.ThumbnailURL, &p.Images, &p.ImagesDownloaded, &p.Features, &p.Amenities, &p.RawData,
		&p.IsActive, &p.PostedAt, &p.ScrapedAt, &p.UpdatedAt, &p.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpsertProperty inserts or merges one scraped record, keyed by external_id.
// On conflict, populated incoming columns win and absent ones keep the stored
// value. The tag number assigned at first insert is never replaced.
func (s *PostgresStore) UpsertProperty(ctx context.Context, p *models.Property) error {
	query := `
		INSERT INTO properties (
			tag_number, external_id, title, description,
			total_price, price_per_meter, rent_price, deposit,
			area, land_area, built_area, rooms, year_built, floor, total_floors, frontage,
			has_elevator, has_parking, has_storage, has_balcony,
			building_direction, unit_status, document_type, usage_type, building_age,
			property_type, listing_type,
			city_name, district, neighborhood, address, latitude, longitude,
			category_name, phone_number, seller_name,
			url, thumbnail_url, images, images_downloaded, features, amenities, raw_data,
			is_active, posted_at, scraped_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30,
			$31, $32, $33, $34, $35, $36, $37, $38, $39, $40, $41, $42, $43, $44, $45, NOW(), NOW()
		)
		ON CONFLICT (external_id) DO UPDATE SET
			tag_number = properties.tag_number,
			title = COALESCE(NULLIF(EXCLUDED.title, ''), properties.title),
			description = COALESCE(NULLIF(EXCLUDED.description, ''), properties.description),
			total_price = COALESCE(EXCLUDED.total_price, properties.total_price),
			price_per_meter = COALESCE(EXCLUDED.price_per_meter, properties.price_per_meter),
			rent_price = COALESCE(EXCLUDED.rent_price, properties.rent_price),
			deposit = COALESCE(EXCLUDED.deposit, properties.deposit),
			area = COALESCE(EXCLUDED.area, properties.area),
			land_area = COALESCE(EXCLUDED.land_area, properties.land_area),
			built_area = COALESCE(EXCLUDED.built_area, properties.built_area),
			rooms = COALESCE(EXCLUDED.rooms, properties.rooms),
			year_built = COALESCE(EXCLUDED.year_built, properties.year_built),
			floor = COALESCE(EXCLUDED.floor, properties.floor),
			total_floors = COALESCE(EXCLUDED.total_floors, properties.total_floors),
			frontage = COALESCE(EXCLUDED.frontage, properties.frontage),
			has_elevator = COALESCE(EXCLUDED.has_elevator, properties.has_elevator),
			has_parking = COALESCE(EXCLUDED.has_parking, properties.has_parking),
			has_storage = COALESCE(EXCLUDED.has_storage, properties.has_storage),
			has_balcony = COALESCE(EXCLUDED.has_balcony, properties.has_balcony),
			building_direction = COALESCE(NULLIF(EXCLUDED.building_direction, ''), properties.building_direction),
			unit_status = COALESCE(NULLIF(EXCLUDED.unit_status, ''), properties.unit_status),
			document_type = COALESCE(NULLIF(EXCLUDED.document_type, ''), properties.document_type),
			usage_type = COALESCE(NULLIF(EXCLUDED.usage_type, ''), properties.usage_type),
			building_age = COALESCE(NULLIF(EXCLUDED.building_age, ''), properties.building_age),
			property_type = COALESCE(NULLIF(EXCLUDED.property_type, ''), properties.property_type),
			listing_type = COALESCE(NULLIF(EXCLUDED.listing_type, ''), properties.listing_type),
			city_name = COALESCE(NULLIF(EXCLUDED.city_name, ''), properties.city_name),
			district = COALESCE(NULLIF(EXCLUDED.district, ''), properties.district),
			neighborhood = COALESCE(NULLIF(EXCLUDED.neighborhood, ''), properties.neighborhood),
			address = COALESCE(NULLIF(EXCLUDED.address, ''), properties.address),
			latitude = COALESCE(EXCLUDED.latitude, properties.latitude),
			longitude = COALESCE(EXCLUDED.longitude, properties.longitude),
			category_name = COALESCE(NULLIF(EXCLUDED.category_name, ''), properties.category_name),
			phone_number = COALESCE(NULLIF(EXCLUDED.phone_number, ''), properties.phone_number),
			seller_name = COALESCE(NULLIF(EXCLUDED.seller_name, ''), properties.seller_name),
			url = COALESCE(NULLIF(EXCLUDED.url, ''), properties.url),
			thumbnail_url = COALESCE(NULLIF(EXCLUDED.thumbnail_url, ''), properties.thumbnail_url),
			images = CASE WHEN cardinality(EXCLUDED.images) > 0 THEN EXCLUDED.images ELSE properties.images END,
			images_downloaded = properties.images_downloaded OR EXCLUDED.images_downloaded,
			features = CASE WHEN cardinality(EXCLUDED.features) > 0 THEN EXCLUDED.features ELSE properties.features END,
			amenities = CASE WHEN cardinality(EXCLUDED.amenities) > 0 THEN EXCLUDED.amenities ELSE properties.amenities END,
			raw_data = COALESCE(EXCLUDED.raw_data, properties.raw_data),
			posted_at = COALESCE(EXCLUDED.posted_at, properties.posted_at),
			scraped_at = NOW(),
			updated_at = NOW()
		RETURNING id, tag_number`

	if p.TagNumber == "" {
		p.TagNumber = models.NewTagNumber()
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.Features == nil {
		p.Features = []string{}
	}
	if p.Amenities == nil {
		p.Amenities = []string{}
	}

	return s.pool.QueryRow(ctx, query,
		p.TagNumber, p.ExternalID, p.Title, p.Description,
		p.TotalPrice, p.PricePerMeter, p.RentPrice, p.Deposit,
		p.Area, p.LandArea, p.BuiltArea, p.Rooms, p.YearBuilt, p.Floor, p.TotalFloors, p.Frontage,
		p.HasElevator, p.HasParking, p.HasStorage, p.HasBalcony,
		p.BuildingDirection, p.UnitStatus, p.DocumentType, p.UsageType, p.BuildingAge,
		p.PropertyType, p.ListingType,
		p.CityName, p.District, p.Neighborhood, p.Address, p.Latitude, p.Longitude,
		p.CategoryName, p.PhoneNumber, p.SellerName,
		p.URL, p.ThumbnailURL, p.Images, p.ImagesDownloaded, p.Features, p.Amenities, p.RawData,
		p.IsActive, p.PostedAt,
	).Scan(&p.ID, &p.TagNumber)
}

func (s *PostgresStore) PropertyExists(ctx context.Context, externalID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM properties WHERE external_id = $1)`, externalID,
	).Scan(&exists)
	return exists, err
}

func (s *PostgresStore) GetPropertyByExternalID(ctx context.Context, externalID string) (*models.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE external_id = $1`
	return scanProperty(s.pool.QueryRow(ctx, query, externalID))
}

func (s *PostgresStore) GetPropertyByID(ctx context.Context, id int64) (*models.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE id = $1`
	return scanProperty(s.pool.QueryRow(ctx, query, id))
}

// PropertyFilter narrows and orders property listings. Zero values mean "no
// constraint".
type PropertyFilter struct {
	City        string
	Category    string
	ListingType string
	MinPrice    *int64
	MaxPrice    *int64
	MinArea     *int
	MaxArea     *int
	MinRooms    *int
	MaxRooms    *int
	HasPhone    bool
	Search      string

	SortBy   string
	SortDesc bool
	Page     int
	PerPage  int
}

// Columns clients may sort on. Anything else falls back to scraped_at.
var sortColumns = map[string]string{
	"scraped_at":      "scraped_at",
	"created_at":      "created_at",
	"updated_at":      "updated_at",
	"total_price":     "total_price",
	"price_per_meter": "price_per_meter",
	"rent_price":      "rent_price",
	"area":            "area",
	"rooms":           "rooms",
	"year_built":      "year_built",
}

func (f *PropertyFilter) whereClause() (string, []any) {
	conds := []string{"is_active = TRUE"}
	var args []any

	add := func(cond string, val any) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.City != "" {
		add("city_name = $%d", f.City)
	}
	if f.Category != "" {
		add("category_name = $%d", f.Category)
	}
	if f.ListingType != "" {
		add("listing_type = $%d", f.ListingType)
	}
	if f.MinPrice != nil {
		add("total_price >= $%d", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		add("total_price <= $%d", *f.MaxPrice)
	}
	if f.MinArea != nil {
		add("area >= $%d", *f.MinArea)
	}
	if f.MaxArea != nil {
		add("area <= $%d", *f.MaxArea)
	}
	if f.MinRooms != nil {
		add("rooms >= $%d", *f.MinRooms)
	}
	if f.MaxRooms != nil {
		add("rooms <= $%d", *f.MaxRooms)
	}
	if f.HasPhone {
		conds = append(conds, "phone_number <> ''")
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", n, n))
	}

	return "WHERE " + strings.Join(conds, " AND "), args
}

// ListProperties returns one page of active records plus the total count for
// the filter.
func (s *PostgresStore) ListProperties(ctx context.Context, f PropertyFilter) ([]*models.Property, int, error) {
	where, args := f.whereClause()

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM properties `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	col, ok := sortColumns[f.SortBy]
	if !ok {
		col = "scraped_at"
	}
	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	perPage := f.PerPage
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	query := fmt.Sprintf(
		`SELECT %s FROM properties %s ORDER BY %s %s NULLS LAST LIMIT %d OFFSET %d`,
		propertyColumns, where, col, dir, perPage, (page-1)*perPage,
	)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*models.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

// SoftDeleteProperty hides a record from listings while keeping the row.
func (s *PostgresStore) SoftDeleteProperty(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE properties SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) MarkImagesDownloaded(ctx context.Context, externalID string, images []string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE properties SET images = $2, images_downloaded = TRUE, updated_at = NOW() WHERE external_id = $1`,
		externalID, images)
	return err
}

// ListPropertiesPendingImages returns active records that still point at
// remote image URLs, oldest first.
func (s *PostgresStore) ListPropertiesPendingImages(ctx context.Context, limit int) ([]*models.Property, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+propertyColumns+` FROM properties
		 WHERE is_active AND NOT images_downloaded AND cardinality(images) > 0
		 ORDER BY scraped_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PropertyStats summarizes the corpus for the stats endpoint.
type PropertyStats struct {
	Total         int            `json:"total"`
	WithPhone     int            `json:"with_phone"`
	ByCity        map[string]int `json:"by_city"`
	ByListingType map[string]int `json:"by_listing_type"`
}

func (s *PostgresStore) GetPropertyStats(ctx context.Context) (*PropertyStats, error) {
	stats := &PropertyStats{
		ByCity:        make(map[string]int),
		ByListingType: make(map[string]int),
	}

	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE phone_number <> '') FROM properties WHERE is_active`,
	).Scan(&stats.Total, &stats.WithPhone)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT city_name, COUNT(*) FROM properties WHERE is_active GROUP BY city_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var city string
		var n int
		if err := rows.Scan(&city, &n); err != nil {
			return nil, err
		}
		stats.ByCity[city] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.pool.Query(ctx,
		`SELECT listing_type, COUNT(*) FROM properties WHERE is_active GROUP BY listing_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var lt string
		var n int
		if err := rows.Scan(&lt, &n); err != nil {
			return nil, err
		}
		stats.ByListingType[lt] = n
	}
	return stats, rows.Err()
}

// =============================================================================
// Scraping jobs
// =============================================================================

const jobColumns = `id, job_id, city, category, status,
	total_pages, scraped_pages, total_items, scraped_items,
	new_items, updated_items, failed_items,
	error_message, started_at, completed_at, created_at`

func scanJob(row pgx.Row) (*models.ScrapingJob, error) {
	var j models.ScrapingJob
	err := row.Scan(
		&j.ID, &j.JobID, &j.City, &j.Category, &j.Status,
		&j.TotalPages, &j.ScrapedPages, &j.TotalItems, &j.ScrapedItems,
		&j.NewItems, &j.UpdatedItems, &j.FailedItems,
		&j.ErrorMessage, &j.StartedAt, &j.CompletedAt, &j.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (s *PostgresStore) CreateJob(ctx context.Context, j *models.ScrapingJob) error {
	query := `
		INSERT INTO scraping_jobs (job_id, city, category, status, total_pages)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	return s.pool.QueryRow(ctx, query, j.JobID, j.City, j.Category, j.Status, j.TotalPages).
		Scan(&j.ID, &j.CreatedAt)
}

func (s *PostgresStore) GetJobByJobID(ctx context.Context, jobID uuid.UUID) (*models.ScrapingJob, error) {
	query := `SELECT ` + jobColumns + ` FROM scraping_jobs WHERE job_id = $1`
	return scanJob(s.pool.QueryRow(ctx, query, jobID))
}

// UpdateJob commits every mutable column of the job row.
func (s *PostgresStore) UpdateJob(ctx context.Context, j *models.ScrapingJob) error {
	query := `
		UPDATE scraping_jobs SET
			status = $2, total_pages = $3, scraped_pages = $4,
			total_items = $5, scraped_items = $6,
			new_items = $7, updated_items = $8, failed_items = $9,
			error_message = $10, started_at = $11, completed_at = $12
		WHERE job_id = $1`
	_, err := s.pool.Exec(ctx, query,
		j.JobID, j.Status, j.TotalPages, j.ScrapedPages,
		j.TotalItems, j.ScrapedItems,
		j.NewItems, j.UpdatedItems, j.FailedItems,
		j.ErrorMessage, j.StartedAt, j.CompletedAt,
	)
	return err
}

// MarkJobCancelled flips a running or pending job to cancelled. It returns
// false when the job is already terminal.
func (s *PostgresStore) MarkJobCancelled(ctx context.Context, jobID uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE scraping_jobs SET status = 'cancelled', completed_at = NOW()
		 WHERE job_id = $1 AND status IN ('pending', 'running')`, jobID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, limit int) ([]*models.ScrapingJob, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	query := `SELECT ` + jobColumns + ` FROM scraping_jobs ORDER BY created_at DESC LIMIT $1`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.ScrapingJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountRunningJobs(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM scraping_jobs WHERE status IN ('pending', 'running')`,
	).Scan(&n)
	return n, err
}

func (s *PostgresStore) AppendJobLog(ctx context.Context, jobID uuid.UUID, level, message string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO job_logs (job_id, level, message) VALUES ($1, $2, $3)`,
		jobID, level, message)
	return err
}

func (s *PostgresStore) GetJobLogs(ctx context.Context, jobID uuid.UUID, limit int) ([]models.JobLog, error) {
	if limit < 1 || limit > 1000 {
		limit = 200
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, job_id, level, message, created_at FROM job_logs
		 WHERE job_id = $1 ORDER BY id DESC LIMIT $2`, jobID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.JobLog
	for rows.Next() {
		var l models.JobLog
		if err := rows.Scan(&l.ID, &l.JobID, &l.Level, &l.Message, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// =============================================================================
// Session credentials
// =============================================================================

func (s *PostgresStore) SaveSession(ctx context.Context, sc *models.SessionCredential) error {
	query := `
		INSERT INTO session_credentials (phone_number, cookies, token, is_valid, expires_at)
		VALUES ($1, $2, $3, TRUE, $4)
		ON CONFLICT (phone_number) DO UPDATE SET
			cookies = EXCLUDED.cookies,
			token = EXCLUDED.token,
			is_valid = TRUE,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()
		RETURNING id`
	return s.pool.QueryRow(ctx, query, sc.PhoneNumber, sc.Cookies, sc.Token, sc.ExpiresAt).Scan(&sc.ID)
}

func (s *PostgresStore) GetSession(ctx context.Context, phoneNumber string) (*models.SessionCredential, error) {
	query := `
		SELECT id, phone_number, cookies, token, is_valid, expires_at, created_at, updated_at
		FROM session_credentials WHERE phone_number = $1 AND is_valid`

	var sc models.SessionCredential
	err := s.pool.QueryRow(ctx, query, phoneNumber).Scan(
		&sc.ID, &sc.PhoneNumber, &sc.Cookies, &sc.Token, &sc.IsValid,
		&sc.ExpiresAt, &sc.CreatedAt, &sc.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sc, nil
}

// InvalidateSession is a no-op when no valid session exists.
func (s *PostgresStore) InvalidateSession(ctx context.Context, phoneNumber string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE session_credentials SET is_valid = FALSE, updated_at = NOW() WHERE phone_number = $1`,
		phoneNumber)
	return err
}

// =============================================================================
// Proxies
// =============================================================================

const proxyColumns = `id, address, port, username, password, protocol,
	is_active, is_working, last_checked, fail_count, success_count, avg_response_ms, created_at`

func scanProxy(row pgx.Row) (*models.Proxy, error) {
	var p models.Proxy
	err := row.Scan(
		&p.ID, &p.Address, &p.Port, &p.Username, &p.Password, &p.Protocol,
		&p.IsActive, &p.IsWorking, &p.LastChecked, &p.FailCount, &p.SuccessCount,
		&p.AvgResponseMS, &p.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) CreateProxy(ctx context.Context, p *models.Proxy) error {
	query := `
		INSERT INTO proxies (address, port, username, password, protocol)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (address, port) DO UPDATE SET
			username = EXCLUDED.username,
			password = EXCLUDED.password,
			protocol = EXCLUDED.protocol,
			is_active = TRUE
		RETURNING id, created_at`
	return s.pool.QueryRow(ctx, query, p.Address, p.Port, p.Username, p.Password, p.Protocol).
		Scan(&p.ID, &p.CreatedAt)
}

func (s *PostgresStore) ListProxies(ctx context.Context) ([]*models.Proxy, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+proxyColumns+` FROM proxies ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Proxy
	for rows.Next() {
		p, err := scanProxy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetProxy returns one proxy by row id, or nil when it does not exist.
func (s *PostgresStore) GetProxy(ctx context.Context, id int64) (*models.Proxy, error) {
	return scanProxy(s.pool.QueryRow(ctx,
		`SELECT `+proxyColumns+` FROM proxies WHERE id = $1`, id))
}

// GetBestProxy returns the healthiest enabled proxy, or nil when none
// qualifies.
func (s *PostgresStore) GetBestProxy(ctx context.Context) (*models.Proxy, error) {
	query := `SELECT ` + proxyColumns + ` FROM proxies
		WHERE is_active AND is_working
		ORDER BY success_count DESC, fail_count ASC
		LIMIT 1`
	return scanProxy(s.pool.QueryRow(ctx, query))
}

// RecordProxyResult updates health counters after a check or a live session.
func (s *PostgresStore) RecordProxyResult(ctx context.Context, id int64, ok bool, responseMS float64) error {
	if ok {
		_, err := s.pool.Exec(ctx, `UPDATE proxies SET
			is_working = TRUE, last_checked = NOW(),
			success_count = success_count + 1,
			avg_response_ms = (COALESCE(avg_response_ms, $2) + $2) / 2
		WHERE id = $1`, id, responseMS)
		return err
	}
	_, err := s.pool.Exec(ctx, `UPDATE proxies SET
		is_working = FALSE, last_checked = NOW(),
		fail_count = fail_count + 1
	WHERE id = $1`, id)
	return err
}

func (s *PostgresStore) DeleteProxy(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM proxies WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
