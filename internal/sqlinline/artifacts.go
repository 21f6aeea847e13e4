package sqlinline

const QSelectArtifactByImageID = `--sql e9e32452-a74c-4a41-b1b4-1207e72ebf6f
select id::text, image_id, cache_path, thumbnail_path, cache_size, thumbnail_size,
       quality, format, dimensions, cached_at, expires_at, is_valid
from cache_artifacts
where image_id = $1::text
limit 1;
`

const QSelectValidArtifactByImageID = `--sql 849af4da-e99a-4c4a-85fd-d47bb1173dd0
select id::text, image_id, cache_path, thumbnail_path, cache_size, thumbnail_size,
       quality, format, dimensions, cached_at, expires_at, is_valid
from cache_artifacts
where image_id = $1::text
  and is_valid
  and expires_at > $2::timestamptz
limit 1;
`

const QUpsertArtifact = `--sql b23be037-34ca-4a34-b374-cd3f6ba2b09e
insert into cache_artifacts(
  id,
  image_id,
  cache_path,
  thumbnail_path,
  cache_size,
  thumbnail_size,
  quality,
  format,
  dimensions,
  cached_at,
  expires_at,
  is_valid
) values (
  $1::uuid,
  $2::text,
  $3::text,
  $4::text,
  $5::bigint,
  $6::bigint,
  $7::int,
  $8::text,
  $9::text,
  $10::timestamptz,
  $11::timestamptz,
  $12::boolean
)
on conflict (image_id) do update set
  cache_path = excluded.cache_path,
  thumbnail_path = excluded.thumbnail_path,
  cache_size = excluded.cache_size,
  thumbnail_size = excluded.thumbnail_size,
  quality = excluded.quality,
  format = excluded.format,
  dimensions = excluded.dimensions,
  cached_at = excluded.cached_at,
  expires_at = excluded.expires_at,
  is_valid = excluded.is_valid
returning id::text;
`

const QDeleteArtifact = `--sql ed63189d-0275-4a3c-83f3-aa303cf5b61c
delete from cache_artifacts
where image_id = $1::text;
`

const QDeleteExpiredArtifact = `--sql 6114c68b-d6b4-4ede-8b6c-8e0523aca2bb
delete from cache_artifacts
where image_id = $1::text
  and (expires_at < $2::timestamptz or not is_valid);
`

const QInvalidateArtifact = `--sql f37a5d39-733b-46b6-abfd-af06d081b41a
update cache_artifacts
set is_valid = false
where image_id = $1::text;
`

const QListExpiredArtifacts = `--sql 13b9a717-48b3-4aaa-b2f0-0e413081a65e
select id::text, image_id, cache_path, thumbnail_path, cache_size, thumbnail_size,
       quality, format, dimensions, cached_at, expires_at, is_valid
from cache_artifacts
where (expires_at < $1::timestamptz or not is_valid)
  and (expires_at, image_id) > ($2::timestamptz, $3::text)
order by expires_at asc, image_id asc
limit $4::int;
`

const QListArtifactsOlderThan = `--sql cb7212aa-9126-4785-a5a8-db3218209273
select id::text, image_id, cache_path, thumbnail_path, cache_size, thumbnail_size,
       quality, format, dimensions, cached_at, expires_at, is_valid
from cache_artifacts
where cached_at < $1::timestamptz
order by cached_at asc
limit $2::int;
`

const QArtifactTotals = `--sql e4e63396-c468-4753-83a5-450ee1291017
select coalesce(sum(cache_size + thumbnail_size), 0)::bigint, count(*)::bigint
from cache_artifacts;
`

const QArtifactSumByPrefix = `--sql 89f9e456-028f-4a63-a5a2-1e1f41abb7ea
select coalesce(sum(cache_size + thumbnail_size), 0)::bigint,
       coalesce(sum(case when thumbnail_path <> '' then 2 else 1 end), 0)::bigint
from cache_artifacts
where is_valid
  and expires_at > $2::timestamptz
  and left(cache_path, length($1::text) + 1) = $1::text || '/';
`

const QListArtifactImageIDs = `--sql 65fa8f7f-3d08-4eb7-ab96-7285ef57ebe2
select image_id
from cache_artifacts
where image_id > $1::text
order by image_id asc
limit $2::int;
`
